package ledger

import (
	"context"

	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
)

// Repository is the remote system of record holding the synchronized
// transaction set. Any remote I/O failure propagates as an error; partial
// writes are never assumed successful.
type Repository interface {
	// FindOrCreate locates the uniquely-named remote ledger, creating it with
	// the fixed header schema when absent, and binds the repository to it.
	// Safe to call repeatedly.
	FindOrCreate(ctx context.Context) (string, error)

	// Bind attaches the repository to an already-provisioned ledger id
	// (recovered from sync metadata) without a remote round trip.
	Bind(id string)

	// ReadAll scans the full remote transaction set. Malformed rows are
	// skipped, not fatal.
	ReadAll(ctx context.Context) ([]*expense.Transaction, error)

	// WriteAll replaces the remote data region with exactly the given set.
	// Used only by the full merge pass.
	WriteAll(ctx context.Context, txs []*expense.Transaction) error

	// Upsert updates the remote row for the transaction's id in place, or
	// appends it when absent. Applying the same transaction twice must not
	// produce a duplicate row.
	Upsert(ctx context.Context, tx *expense.Transaction) error

	// Remove deletes the remote row for id. Removing an absent id is a no-op.
	Remove(ctx context.Context, id string) error

	// LastSync reads the ledger-level last-sync marker (unix milliseconds),
	// zero when unset.
	LastSync(ctx context.Context) (int64, error)
	SetLastSync(ctx context.Context, ts int64) error
}

// ErrNotProvisioned indicates an operation against a ledger that has not been
// resolved via FindOrCreate yet
type ErrNotProvisioned struct{}

func (e ErrNotProvisioned) Error() string {
	return "remote ledger not provisioned"
}
