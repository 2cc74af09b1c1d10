package batches

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/dbx"
	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

// SQLRepository implements batch storage over a dbx.DBTX (*sql.DB or *sql.Tx).
// Queries use '?' placeholders; wrap the handle with dbx.Bind for PostgreSQL.
type SQLRepository struct {
	db dbx.DBTX
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, b *models.Batch, createdAt int64) error {
	var caption sql.NullString
	if b.Caption != nil {
		caption = sql.NullString{String: *b.Caption, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO batches (batch_id, caption, created_at) VALUES (?, ?, ?)`,
		b.ID, caption, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	for i, f := range b.Files {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO files (batch_id, position, file_ref) VALUES (?, ?, ?)`,
			b.ID, i, int64(f))
		if err != nil {
			return fmt.Errorf("failed to insert file %d: %w", i, err)
		}
	}

	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Batch, error) {
	var caption sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT caption FROM batches WHERE batch_id = ?`, id).Scan(&caption)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select batch: %w", err)
	}

	b := &models.Batch{ID: id}
	if caption.Valid {
		c := caption.String
		b.Caption = &c
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT file_ref FROM files WHERE batch_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref int64
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		b.Files = append(b.Files, models.FileRef(ref))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return b, nil
}

func (r *SQLRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM batches WHERE batch_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check batch: %w", err)
	}
	return true, nil
}

func (r *SQLRepository) Count(ctx context.Context) (int64, int64, error) {
	var batches, files int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches`).Scan(&batches); err != nil {
		return 0, 0, fmt.Errorf("failed to count batches: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&files); err != nil {
		return 0, 0, fmt.Errorf("failed to count files: %w", err)
	}
	return batches, files, nil
}
