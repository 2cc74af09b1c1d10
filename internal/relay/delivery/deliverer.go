// Package delivery replays an archived batch into a recipient's chat and
// arms the deferred cleanup that removes the replayed messages again.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/relay/messenger"
	"github.com/dmitrijs2005/filegate/internal/relay/metrics"
	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

// DefaultRetention is how long delivered messages stay in the recipient chat.
const DefaultRetention = 600 * time.Second

// BatchSource is what delivery needs from the archive store.
type BatchSource interface {
	GetBatch(ctx context.Context, id string) (*models.Batch, error)
	IncrementDownloads(ctx context.Context, id string) error
}

// CleanupScheduler arms a deferred deletion without blocking.
type CleanupScheduler interface {
	Schedule(ctx context.Context, chatID int64, messageIDs []int, delay time.Duration) *models.CleanupTask
}

type Deliverer struct {
	msg         messenger.Messenger
	store       BatchSource
	sched       CleanupScheduler
	archiveChat int64
	retention   time.Duration
	logger      logging.Logger
	metrics     *metrics.RelayMetrics
}

func NewDeliverer(msg messenger.Messenger, store BatchSource, sched CleanupScheduler, archiveChat int64, retention time.Duration, l logging.Logger, m *metrics.RelayMetrics) *Deliverer {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Deliverer{
		msg:         msg,
		store:       store,
		sched:       sched,
		archiveChat: archiveChat,
		retention:   retention,
		logger:      l.With("module", "delivery"),
		metrics:     m,
	}
}

// Warning is the notice sent ahead of every delivery.
func (d *Deliverer) Warning() string {
	return fmt.Sprintf("Please save or forward the files. They will auto-delete after %s.", RetentionLabel(d.retention))
}

// Deliver sends the warning, the caption (if any) and every file of the batch
// in stored order, counts one download and arms a single cleanup covering
// all produced messages. A file that cannot be replayed is recorded in the
// receipt and skipped.
//
// If the warning cannot be sent nothing else is sent and nothing is counted.
func (d *Deliverer) Deliver(ctx context.Context, chatID int64, batchID string) (*models.Receipt, error) {
	log := d.logger.With("chat_id", chatID, "batch_id", batchID)

	warnID, err := d.msg.SendText(ctx, chatID, d.Warning(), nil)
	if err != nil {
		return nil, fmt.Errorf("send warning: %w", err)
	}

	rcpt := &models.Receipt{ChatID: chatID, BatchID: batchID, MessageIDs: []int{warnID}}

	b, err := d.store.GetBatch(ctx, batchID)
	if err != nil {
		d.sched.Schedule(ctx, chatID, rcpt.MessageIDs, d.retention)
		return nil, fmt.Errorf("load batch: %w", err)
	}

	if b.HasCaption() {
		id, err := d.msg.SendText(ctx, chatID, *b.Caption, nil)
		if err != nil {
			log.Warn(ctx, "caption not sent", "error", err)
		} else {
			rcpt.MessageIDs = append(rcpt.MessageIDs, id)
		}
	}

	for _, f := range b.Files {
		id, err := d.msg.CopyMessage(ctx, chatID, d.archiveChat, int(f))
		if err != nil {
			log.Warn(ctx, "file not replayed", "message_id", int(f), "error", err)
			rcpt.Failures = append(rcpt.Failures, models.FileFailure{File: f, Err: err})
			continue
		}
		rcpt.MessageIDs = append(rcpt.MessageIDs, id)
	}

	if err := d.store.IncrementDownloads(ctx, batchID); err != nil {
		log.Error(ctx, "download not counted", "error", err)
	}

	d.sched.Schedule(ctx, chatID, rcpt.MessageIDs, d.retention)
	d.metrics.Delivered(len(b.Files)-len(rcpt.Failures), len(rcpt.Failures))

	log.Info(ctx, "batch delivered", "files", len(b.Files), "failed", len(rcpt.Failures))
	return rcpt, nil
}

// RetentionLabel renders a retention delay for humans: "10 minutes",
// "1 hour", "45 seconds".
func RetentionLabel(d time.Duration) string {
	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return unit(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return unit(int64(d/time.Minute), "minute")
	default:
		return unit(int64(d/time.Second), "second")
	}
}
