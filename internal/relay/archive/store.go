// Package archive is the relay's Archive Store: the durable mapping from a
// batch id to its ordered file references, optional caption and download
// counter.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/dbx"
	"github.com/dmitrijs2005/filegate/internal/relay/models"
	"github.com/dmitrijs2005/filegate/internal/relay/repositories/repomanager"
)

type Store struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
	newID       func() (string, error)
}

func NewStore(db *sql.DB, rm repomanager.RepositoryManager) *Store {
	return &Store{
		db:          db,
		repomanager: rm,
		now:         time.Now,
		newID:       common.NewBatchID,
	}
}

// CreateBatch commits a new batch and returns its id. The batch row, its
// file rows and its zeroed counter are written in one transaction: on error
// nothing is visible.
func (s *Store) CreateBatch(ctx context.Context, caption *string, files []models.FileRef) (string, error) {
	if len(files) == 0 {
		return "", common.ErrEmptyBatch
	}

	id, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("batch id: %w", err)
	}

	b := &models.Batch{
		ID:      id,
		Caption: caption,
		Files:   append([]models.FileRef(nil), files...),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Batches(tx).Create(ctx, b, s.now().Unix()); err != nil {
			return err
		}
		return s.repomanager.Downloads(tx).Init(ctx, id)
	})
	if err != nil {
		return "", fmt.Errorf("commit batch: %w", err)
	}

	return id, nil
}

// GetBatch returns the batch or common.ErrorNotFound.
func (s *Store) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	return s.repomanager.Batches(s.db).Get(ctx, id)
}

func (s *Store) BatchExists(ctx context.Context, id string) (bool, error) {
	return s.repomanager.Batches(s.db).Exists(ctx, id)
}

// IncrementDownloads bumps the counter, creating it first if it is missing.
func (s *Store) IncrementDownloads(ctx context.Context, id string) error {
	return s.repomanager.Downloads(s.db).Increment(ctx, id)
}

func (s *Store) Downloads(ctx context.Context, id string) (int64, error) {
	return s.repomanager.Downloads(s.db).Get(ctx, id)
}

// AggregateStats returns totals plus the per-batch list, most downloaded
// first.
func (s *Store) AggregateStats(ctx context.Context) (*models.Stats, error) {
	batches, files, err := s.repomanager.Batches(s.db).Count(ctx)
	if err != nil {
		return nil, err
	}

	dl := s.repomanager.Downloads(s.db)
	total, err := dl.Total(ctx)
	if err != nil {
		return nil, err
	}
	per, err := dl.PerBatch(ctx)
	if err != nil {
		return nil, err
	}

	return &models.Stats{
		TotalBatches:   batches,
		TotalFiles:     files,
		TotalDownloads: total,
		Batches:        per,
	}, nil
}
