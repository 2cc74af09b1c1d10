// Package metrics provides Prometheus metrics for the relay.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gate decision outcomes.
const (
	GateInvalid   = "invalid"
	GateNotMember = "not_member"
	GateGranted   = "granted"
	GateWelcome   = "welcome"
)

// RelayMetrics holds every collector the relay updates. A nil
// *RelayMetrics is valid and records nothing.
type RelayMetrics struct {
	BatchesCommitted prometheus.Counter
	BatchesAbandoned prometheus.Counter
	FilesArchived    prometheus.Counter

	GateDecisions *prometheus.CounterVec // labels: outcome

	Deliveries     prometheus.Counter
	FilesReplayed  prometheus.Counter
	ReplayFailures prometheus.Counter

	CleanupsFired   prometheus.Counter
	MessagesDeleted prometheus.Counter
	DeleteFailures  prometheus.Counter
	PendingCleanups prometheus.Gauge

	HandlerPanics prometheus.Counter
}

// New registers the relay collectors on reg. Pass nil to get a fresh
// private registry (useful in tests); the registry is returned either way.
func New(reg *prometheus.Registry) (*RelayMetrics, *prometheus.Registry) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)
	m := &RelayMetrics{
		BatchesCommitted: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_batches_committed_total",
			Help: "Batches committed to the archive",
		}),
		BatchesAbandoned: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_batches_abandoned_total",
			Help: "Assembly sessions closed without any file",
		}),
		FilesArchived: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_files_archived_total",
			Help: "Media items relayed into the archive channel",
		}),
		GateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_gate_decisions_total",
			Help: "Access gate outcomes",
		}, []string{"outcome"}),
		Deliveries: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Completed batch deliveries",
		}),
		FilesReplayed: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_files_replayed_total",
			Help: "Files copied into recipient chats",
		}),
		ReplayFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_replay_failures_total",
			Help: "Files that failed to copy into a recipient chat",
		}),
		CleanupsFired: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_cleanups_fired_total",
			Help: "Retention cleanups executed",
		}),
		MessagesDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_messages_deleted_total",
			Help: "Delivered messages removed after the retention window",
		}),
		DeleteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_delete_failures_total",
			Help: "Delivered messages that could not be removed",
		}),
		PendingCleanups: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_pending_cleanups",
			Help: "Armed retention cleanups not yet fired",
		}),
		HandlerPanics: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_handler_panics_total",
			Help: "Inbound events whose handler panicked",
		}),
	}
	return m, reg
}

func (m *RelayMetrics) Gate(outcome string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(outcome).Inc()
}

func (m *RelayMetrics) inc(c prometheus.Counter) {
	if m == nil {
		return
	}
	c.Inc()
}

func (m *RelayMetrics) add(c prometheus.Counter, n int) {
	if m == nil || n <= 0 {
		return
	}
	c.Add(float64(n))
}

func (m *RelayMetrics) Committed() {
	if m == nil {
		return
	}
	m.inc(m.BatchesCommitted)
}

func (m *RelayMetrics) Abandoned() {
	if m == nil {
		return
	}
	m.inc(m.BatchesAbandoned)
}

func (m *RelayMetrics) Archived() {
	if m == nil {
		return
	}
	m.inc(m.FilesArchived)
}

func (m *RelayMetrics) Delivered(replayed, failed int) {
	if m == nil {
		return
	}
	m.inc(m.Deliveries)
	m.add(m.FilesReplayed, replayed)
	m.add(m.ReplayFailures, failed)
}

func (m *RelayMetrics) CleanupFired(deleted, failed int) {
	if m == nil {
		return
	}
	m.inc(m.CleanupsFired)
	m.add(m.MessagesDeleted, deleted)
	m.add(m.DeleteFailures, failed)
}

func (m *RelayMetrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingCleanups.Set(float64(n))
}

func (m *RelayMetrics) Panicked() {
	if m == nil {
		return
	}
	m.inc(m.HandlerPanics)
}

// Serve exposes reg on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
