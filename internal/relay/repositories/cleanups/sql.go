package cleanups

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filegate/internal/dbx"
	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

// Save stores task. Message ids are kept as a JSON array; fire_at as unix
// milliseconds.
func (r *SQLRepository) Save(ctx context.Context, task *models.CleanupTask) error {
	ids, err := json.Marshal(task.MessageIDs)
	if err != nil {
		return fmt.Errorf("failed to encode message ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO pending_cleanups (id, chat_id, message_ids, fire_at) VALUES (?, ?, ?, ?)`,
		task.ID, task.ChatID, string(ids), task.FireAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save cleanup: %w", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_cleanups WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cleanup: %w", err)
	}
	return nil
}

func (r *SQLRepository) List(ctx context.Context) ([]*models.CleanupTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, chat_id, message_ids, fire_at FROM pending_cleanups ORDER BY fire_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select cleanups: %w", err)
	}
	defer rows.Close()

	var result []*models.CleanupTask
	for rows.Next() {
		var (
			t      models.CleanupTask
			ids    string
			fireAt int64
		)
		if err := rows.Scan(&t.ID, &t.ChatID, &ids, &fireAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ids), &t.MessageIDs); err != nil {
			return nil, fmt.Errorf("cleanup %s: bad message ids: %w", t.ID, err)
		}
		t.FireAt = time.UnixMilli(fireAt)
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
