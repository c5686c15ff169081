package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/apisak-w/pwa-expense-manager/internal/domain/outbox"
	"github.com/apisak-w/pwa-expense-manager/internal/platform/persistence"
)

// OutboxRepository implements the outbox.Queue interface for sqlite
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOutboxRepository creates a new sqlite outbox repository
func NewOutboxRepository(logger *slog.Logger, db *persistence.SQLiteDB) outbox.Queue {
	return &OutboxRepository{
		querier: db.Handle(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *OutboxRepository) WithTx(tx *sql.Tx) outbox.Queue {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Enqueue appends a pending item to the sync queue
func (r *OutboxRepository) Enqueue(ctx context.Context, item *outbox.Item) error {
	query := `
		INSERT INTO sync_queue (id, action, payload, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.querier.ExecContext(ctx, query,
		item.ID,
		string(item.Action),
		string(item.Payload),
		item.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to enqueue outbox item", "item_id", item.ID, "error", err)
		return fmt.Errorf("failed to enqueue outbox item: %w", err)
	}

	return nil
}

// List returns pending items in insertion order.
// The coordinator drains them FIFO.
func (r *OutboxRepository) List(ctx context.Context) ([]*outbox.Item, error) {
	query := `
		SELECT id, action, payload, created_at
		FROM sync_queue
		ORDER BY seq ASC
	`

	rows, err := r.querier.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list outbox items", "error", err)
		return nil, fmt.Errorf("failed to list outbox items: %w", err)
	}
	defer rows.Close()

	var items []*outbox.Item
	for rows.Next() {
		var (
			item    outbox.Item
			action  string
			payload string
		)
		if err := rows.Scan(&item.ID, &action, &payload, &item.Timestamp); err != nil {
			r.logger.Error("Failed to scan outbox item", "error", err)
			return nil, fmt.Errorf("failed to scan outbox item: %w", err)
		}
		item.Action = outbox.Action(action)
		item.Payload = []byte(payload)
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over outbox items: %w", err)
	}

	return items, nil
}

// Dequeue permanently removes an item.
// This is only called after successful remote application.
func (r *OutboxRepository) Dequeue(ctx context.Context, id string) error {
	result, err := r.querier.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to dequeue outbox item", "item_id", id, "error", err)
		return fmt.Errorf("failed to dequeue outbox item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return outbox.ErrItemNotFound{ID: id}
	}

	return nil
}

// Clear drops every pending item
func (r *OutboxRepository) Clear(ctx context.Context) error {
	if _, err := r.querier.ExecContext(ctx, `DELETE FROM sync_queue`); err != nil {
		r.logger.Error("Failed to clear outbox", "error", err)
		return fmt.Errorf("failed to clear outbox: %w", err)
	}
	return nil
}
