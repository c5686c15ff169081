package outbox

import (
	"context"
	"database/sql"
)

// Queue is the durable sync queue of pending remote mutations. It is the
// single source of pending work; items are removed only after a strategy
// confirms remote application.
type Queue interface {
	Enqueue(ctx context.Context, item *Item) error
	// List returns pending items in insertion order.
	List(ctx context.Context) ([]*Item, error)
	Dequeue(ctx context.Context, id string) error
	Clear(ctx context.Context) error

	WithTx(tx *sql.Tx) Queue
}

// ErrItemNotFound indicates a missing outbox item
type ErrItemNotFound struct {
	ID string
}

func (e ErrItemNotFound) Error() string {
	return "outbox item not found: " + e.ID
}
