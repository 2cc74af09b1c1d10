// Package cleanups persists armed retention tasks so a restart between
// delivery and deletion does not leave delivered messages behind.
package cleanups

import (
	"context"

	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

type Repository interface {
	Save(ctx context.Context, task *models.CleanupTask) error
	Delete(ctx context.Context, id string) error
	// List returns every pending task, earliest FireAt first.
	List(ctx context.Context) ([]*models.CleanupTask, error)
}
