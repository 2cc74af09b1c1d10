// Package bot routes inbound chat events to the assembly machine, the
// access gate and the stats report.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/relay/assembly"
	"github.com/dmitrijs2005/filegate/internal/relay/gate"
	"github.com/dmitrijs2005/filegate/internal/relay/messenger"
	"github.com/dmitrijs2005/filegate/internal/relay/metrics"
	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

const (
	CmdStart    = "start"
	CmdNewBatch = "newbatch"
	CmdSkip     = "skip"
	CmdStats    = "stats"
)

const (
	TextStatsNotAllowed = "You are not allowed to view stats."
	TextStatsFailed     = "Could not load stats. Please try again later."
)

// maxMessageLen is the platform's limit on one text message.
const maxMessageLen = 4096

// StatsSource provides the aggregate counters for /stats.
type StatsSource interface {
	AggregateStats(ctx context.Context) (*models.Stats, error)
}

type Router struct {
	msg      messenger.Messenger
	assembly *assembly.Machine
	gate     *gate.Gate
	stats    StatsSource
	logger   logging.Logger
	metrics  *metrics.RelayMetrics
}

func NewRouter(msg messenger.Messenger, a *assembly.Machine, g *gate.Gate, s StatsSource, l logging.Logger, m *metrics.RelayMetrics) *Router {
	return &Router{
		msg:      msg,
		assembly: a,
		gate:     g,
		stats:    s,
		logger:   l.With("module", "router"),
		metrics:  m,
	}
}

// Handle processes one event. A panicking handler is logged and counted;
// it never escapes to the update loop.
func (r *Router) Handle(ctx context.Context, ev messenger.Event) {
	defer func() {
		if p := recover(); p != nil {
			r.metrics.Panicked()
			r.logger.Error(ctx, "handler panic", "user_id", ev.UserID, "chat_id", ev.ChatID, "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
		}
	}()

	if ev.IsCallback() {
		r.callback(ctx, ev)
		return
	}

	if name, args, ok := ev.Command(); ok {
		r.command(ctx, ev, name, args)
		return
	}

	if ev.Media != messenger.MediaNone {
		r.assembly.AddMedia(ctx, ev)
		return
	}

	if ev.Text != "" {
		r.assembly.Caption(ctx, ev)
	}
}

func (r *Router) callback(ctx context.Context, ev messenger.Event) {
	switch {
	case ev.CallbackData == common.CallbackDoneUpload:
		r.assembly.Done(ctx, ev)
	case strings.HasPrefix(ev.CallbackData, common.CallbackCheckJoinPfx):
		r.gate.Recheck(ctx, ev)
	default:
		r.logger.Debug(ctx, "unknown callback", "user_id", ev.UserID, "data", ev.CallbackData)
		if err := r.msg.AnswerCallback(ctx, ev.CallbackID, "", false); err != nil {
			r.logger.Warn(ctx, "callback not answered", "user_id", ev.UserID, "error", err)
		}
	}
}

func (r *Router) command(ctx context.Context, ev messenger.Event, name string, args []string) {
	switch name {
	case CmdStart:
		var id string
		if len(args) > 0 {
			id = args[0]
		}
		r.gate.Open(ctx, ev, id)
	case CmdNewBatch:
		r.assembly.NewBatch(ctx, ev)
	case CmdSkip:
		r.assembly.Skip(ctx, ev)
	case CmdStats:
		r.Stats(ctx, ev)
	default:
		r.logger.Debug(ctx, "unknown command", "user_id", ev.UserID, "command", name)
	}
}

// Stats replies with the aggregate counters. Only uploaders may ask.
func (r *Router) Stats(ctx context.Context, ev messenger.Event) {
	if !r.assembly.Allowed(ev.UserID) {
		r.reply(ctx, ev.ChatID, TextStatsNotAllowed)
		return
	}

	st, err := r.stats.AggregateStats(ctx)
	if err != nil {
		r.logger.Error(ctx, "stats not loaded", "error", err)
		r.reply(ctx, ev.ChatID, TextStatsFailed)
		return
	}

	for _, chunk := range SplitMessage(FormatStats(st), maxMessageLen) {
		r.reply(ctx, ev.ChatID, chunk)
	}
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if _, err := r.msg.SendText(ctx, chatID, text, nil); err != nil {
		r.logger.Warn(ctx, "reply not sent", "chat_id", chatID, "error", err)
	}
}
