// Package downloads owns the per-batch download counter (the stats table)
// and the aggregate report built on top of it.
package downloads

import (
	"context"

	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

type Repository interface {
	// Init creates a zeroed counter row for batchID.
	Init(ctx context.Context, batchID string) error

	// Increment adds one to the counter, creating the row first if it is
	// missing. It is a single statement, so concurrent calls never lose an
	// update.
	Increment(ctx context.Context, batchID string) error

	// Get returns the current counter value; a missing row reads as zero.
	Get(ctx context.Context, batchID string) (int64, error)

	// Total sums all counters.
	Total(ctx context.Context) (int64, error)

	// PerBatch lists every batch with its file count and downloads,
	// highest downloads first.
	PerBatch(ctx context.Context) ([]models.BatchStats, error)
}
