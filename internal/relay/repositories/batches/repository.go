// Package batches persists committed batches: one row per batch plus one
// row per file reference, keyed by (batch_id, position) so upload order
// survives the round trip.
package batches

import (
	"context"

	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

// Repository describes batch persistence. Create must be called inside a
// transaction by callers that need the batch and its files to appear
// atomically.
type Repository interface {
	// Create inserts the batch row and all of its file rows.
	Create(ctx context.Context, b *models.Batch, createdAt int64) error

	// Get returns the batch with its files in upload order, or
	// common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Batch, error)

	// Exists reports whether a batch with id has been committed.
	Exists(ctx context.Context, id string) (bool, error)

	// Count returns the number of batches and the number of stored files.
	Count(ctx context.Context) (batches int64, files int64, err error)
}
