package expense

import (
	"context"
	"database/sql"
)

// Store manages durable local transaction persistence. All operations are
// local; a Put or Delete that returns nil is durable before the next read.
type Store interface {
	Put(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Transaction, error)
	MarkSynced(ctx context.Context, id string, synced bool) error

	PutTombstone(ctx context.Context, ts *Tombstone) error
	ListTombstones(ctx context.Context) ([]*Tombstone, error)
	PruneTombstones(ctx context.Context, before int64) error

	WithTx(tx *sql.Tx) Store
}

// Tombstone records a local deletion so the merge pass can distinguish
// "deleted while offline" from "never seen". DeletedAt is unix milliseconds.
type Tombstone struct {
	ID        string `json:"id"`
	DeletedAt int64  `json:"deleted_at"`
}

// ErrTransactionNotFound indicates a missing local transaction
type ErrTransactionNotFound struct {
	ID string
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.ID
}
