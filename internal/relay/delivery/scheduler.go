package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/relay/metrics"
	"github.com/dmitrijs2005/filegate/internal/relay/models"
	"github.com/dmitrijs2005/filegate/internal/relay/repositories/cleanups"
	"github.com/google/uuid"
)

// Deleter is the part of the messenger the scheduler needs.
type Deleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// CleanupResult reports what one cleanup run achieved.
type CleanupResult struct {
	Deleted []int
	Failed  map[int]error
}

// Scheduler owns the retention cleanups: a delayed one-shot task queue that
// lives independently of the requests that arm it. Tasks are mirrored into
// a repository when one is configured, so they survive restarts.
type Scheduler struct {
	deleter Deleter
	repo    cleanups.Repository
	logger  logging.Logger
	metrics *metrics.RelayMetrics
	now     func() time.Time

	mu    sync.Mutex
	queue taskQueue
	wake  chan struct{}

	running sync.WaitGroup
}

// NewScheduler builds a scheduler. repo may be nil, in which case armed
// tasks live in memory only.
func NewScheduler(d Deleter, repo cleanups.Repository, l logging.Logger, m *metrics.RelayMetrics) *Scheduler {
	return &Scheduler{
		deleter: d,
		repo:    repo,
		logger:  l.With("module", "retention"),
		metrics: m,
		now:     time.Now,
		wake:    make(chan struct{}, 1),
	}
}

// Schedule arms a cleanup of messageIDs in chatID after delay and returns
// immediately. A failure to persist the task is logged; the task is still
// armed in memory.
func (s *Scheduler) Schedule(ctx context.Context, chatID int64, messageIDs []int, delay time.Duration) *models.CleanupTask {
	t := &models.CleanupTask{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		MessageIDs: append([]int(nil), messageIDs...),
		FireAt:     s.now().Add(delay),
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, t); err != nil {
			s.logger.Error(ctx, "cleanup not persisted", "task_id", t.ID, "chat_id", chatID, "error", err)
		}
	}

	s.arm(t)
	s.logger.Debug(ctx, "cleanup armed", "task_id", t.ID, "chat_id", chatID, "messages", len(t.MessageIDs), "fire_at", t.FireAt)
	return t
}

// Restore re-arms every persisted task. Overdue tasks fire on the next
// pass of Run.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range tasks {
		s.arm(t)
	}
	if len(tasks) > 0 {
		s.logger.Info(ctx, "restored pending cleanups", "count", len(tasks))
	}
	return len(tasks), nil
}

func (s *Scheduler) arm(t *models.CleanupTask) {
	s.mu.Lock()
	s.queue.push(t)
	n := s.queue.Len()
	s.mu.Unlock()

	s.metrics.SetPending(n)

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of armed tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Run fires tasks as they come due until ctx is cancelled, then waits for
// in-flight cleanups to finish. Tasks still queued stay persisted for the
// next start.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.running.Wait()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait := s.fireDue(ctx, s.now())

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// fireDue starts every task due at now and returns how long to sleep until
// the next one.
func (s *Scheduler) fireDue(ctx context.Context, now time.Time) time.Duration {
	var due []*models.CleanupTask

	s.mu.Lock()
	for {
		next := s.queue.peek()
		if next == nil || next.FireAt.After(now) {
			break
		}
		due = append(due, s.queue.pop())
	}
	wait := time.Hour
	if next := s.queue.peek(); next != nil {
		wait = next.FireAt.Sub(now)
	}
	n := s.queue.Len()
	s.mu.Unlock()

	if len(due) > 0 {
		s.metrics.SetPending(n)
	}

	for _, t := range due {
		s.running.Add(1)
		go func(t *models.CleanupTask) {
			defer s.running.Done()
			s.fire(ctx, t)
		}(t)
	}
	return wait
}

func (s *Scheduler) fire(ctx context.Context, t *models.CleanupTask) {
	res := s.Cleanup(ctx, t.ChatID, t.MessageIDs)
	s.metrics.CleanupFired(len(res.Deleted), len(res.Failed))

	if ctx.Err() != nil {
		// shutting down mid-run: leave the row so the next start retries
		return
	}
	if s.repo != nil {
		if err := s.repo.Delete(ctx, t.ID); err != nil {
			s.logger.Warn(ctx, "fired cleanup not removed", "task_id", t.ID, "error", err)
		}
	}
}

// Cleanup deletes every message independently. Failures (already deleted,
// no permission, chat gone) are logged and collected, never returned.
func (s *Scheduler) Cleanup(ctx context.Context, chatID int64, messageIDs []int) CleanupResult {
	res := CleanupResult{Failed: map[int]error{}}
	for _, id := range messageIDs {
		if err := s.deleter.DeleteMessage(ctx, chatID, id); err != nil {
			res.Failed[id] = err
			if !errors.Is(err, context.Canceled) {
				s.logger.Warn(ctx, "delete failed", "chat_id", chatID, "message_id", id, "error", err)
			}
			continue
		}
		res.Deleted = append(res.Deleted, id)
	}
	return res
}
