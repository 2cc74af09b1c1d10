package downloads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filegate/internal/dbx"
	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Init(ctx context.Context, batchID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO stats (batch_id, downloads) VALUES (?, 0)`, batchID)
	if err != nil {
		return fmt.Errorf("failed to init counter: %w", err)
	}
	return nil
}

func (r *SQLRepository) Increment(ctx context.Context, batchID string) error {
	query := `
		INSERT INTO stats (batch_id, downloads) VALUES (?, 1)
		ON CONFLICT (batch_id) DO UPDATE SET downloads = stats.downloads + 1
	`
	res, err := r.db.ExecContext(ctx, query, batchID)
	if err != nil {
		return fmt.Errorf("failed to increment counter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, batchID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT downloads FROM stats WHERE batch_id = ?`, batchID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to select counter: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) Total(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT SUM(downloads) FROM stats`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum downloads: %w", err)
	}
	return total.Int64, nil
}

func (r *SQLRepository) PerBatch(ctx context.Context) ([]models.BatchStats, error) {
	query := `
		SELECT b.batch_id,
		       (SELECT COUNT(*) FROM files f WHERE f.batch_id = b.batch_id) AS file_count,
		       COALESCE(s.downloads, 0) AS downloads
		FROM batches b
		LEFT JOIN stats s ON s.batch_id = b.batch_id
		ORDER BY downloads DESC, b.batch_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select stats: %w", err)
	}
	defer rows.Close()

	var result []models.BatchStats
	for rows.Next() {
		var item models.BatchStats
		if err := rows.Scan(&item.BatchID, &item.FileCount, &item.Downloads); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
