// Package relay wires the file relay together: storage, the chat transport,
// the update router, the retention scheduler and the metrics endpoint.
package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/relay/archive"
	"github.com/dmitrijs2005/filegate/internal/relay/assembly"
	"github.com/dmitrijs2005/filegate/internal/relay/bot"
	"github.com/dmitrijs2005/filegate/internal/relay/config"
	"github.com/dmitrijs2005/filegate/internal/relay/delivery"
	"github.com/dmitrijs2005/filegate/internal/relay/gate"
	"github.com/dmitrijs2005/filegate/internal/relay/messenger"
	"github.com/dmitrijs2005/filegate/internal/relay/metrics"
	"github.com/dmitrijs2005/filegate/internal/relay/repositories/repomanager"
	"github.com/prometheus/client_golang/prometheus"
)

// Poller is the inbound side of the chat transport.
type Poller interface {
	Start(ctx context.Context)
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *prometheus.Registry
	poller   Poller
	sched    *delivery.Scheduler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)
	m, reg := metrics.New(nil)

	db, rm, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store := archive.NewStore(db, rm)

	var router *bot.Router
	tg, err := messenger.NewTelegram(c.BotToken, c.PollTimeout,
		func(ctx context.Context, ev messenger.Event) { router.Handle(ctx, ev) },
		func(err error) { logger.Warn(context.Background(), "telegram error", "error", err) },
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	sched := delivery.NewScheduler(tg, rm.Cleanups(db), logger, m)
	deliverer := delivery.NewDeliverer(tg, store, sched, c.ArchiveChannelID, c.RetentionDelay, logger, m)
	g := gate.New(tg, store, deliverer, c.GateChannel, c.GateChannelURL, logger, m)
	machine := assembly.NewMachine(tg, store, c.Uploaders, c.ArchiveChannelID, c.EntryPoint(), logger, m)
	router = bot.NewRouter(tg, machine, g, store, logger, m)

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		registry: reg,
		poller:   tg,
		sched:    sched,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.logger.Info(ctx, "metrics endpoint listening", "addr", app.config.MetricsAddr)
	if err := metrics.Serve(ctx, app.config.MetricsAddr, app.registry); err != nil {
		app.logger.Error(ctx, "metrics server failed", "error", err)
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or ctx is cancelled. Armed
// cleanups that have not fired yet stay persisted for the next start.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting relay",
		"uploaders", len(app.config.Uploaders),
		"gate_channel", app.config.GateChannel,
		"retention", app.config.RetentionDelay.String())

	app.initSignalHandler(cancelFunc)

	if _, err := app.sched.Restore(ctx); err != nil {
		app.logger.Error(ctx, "pending cleanups not restored", "error", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sched.Run(ctx)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.poller.Start(ctx)
		cancelFunc()
	}()

	wg.Wait()
	app.logger.Info(context.Background(), "relay stopped")

	if err := app.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("db close: %w", err)
	}
	return nil
}
