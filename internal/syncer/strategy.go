package syncer

import (
	"context"
	"fmt"

	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/ledger"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/outbox"
)

// Strategy applies one outbox item to a remote backend. Implementations must
// be idempotent for create/update (re-applying an item never duplicates a
// remote record) and must treat deleting an absent record as success.
type Strategy interface {
	ApplyItem(ctx context.Context, item *outbox.Item) error
}

// LedgerStrategy drains the outbox against the spreadsheet-backed ledger
type LedgerStrategy struct {
	ledger ledger.Repository
}

// NewLedgerStrategy creates a ledger-backed sync strategy
func NewLedgerStrategy(repo ledger.Repository) *LedgerStrategy {
	return &LedgerStrategy{ledger: repo}
}

// ApplyItem implements Strategy
func (s *LedgerStrategy) ApplyItem(ctx context.Context, item *outbox.Item) error {
	switch item.Action {
	case outbox.ActionCreate, outbox.ActionUpdate:
		tx, err := item.Transaction()
		if err != nil {
			return err
		}
		return s.ledger.Upsert(ctx, tx)
	case outbox.ActionDelete:
		id, err := item.DeleteTarget()
		if err != nil {
			return err
		}
		return s.ledger.Remove(ctx, id)
	default:
		return fmt.Errorf("unknown outbox action %q", item.Action)
	}
}

// ExpenseAPI is the remote surface the API strategy writes to
type ExpenseAPI interface {
	UpsertExpense(ctx context.Context, tx *expense.Transaction) error
	DeleteExpense(ctx context.Context, id string) error
}

// APIStrategy drains the outbox against the JSON expense API
type APIStrategy struct {
	api ExpenseAPI
}

// NewAPIStrategy creates an expense-API-backed sync strategy
func NewAPIStrategy(api ExpenseAPI) *APIStrategy {
	return &APIStrategy{api: api}
}

// ApplyItem implements Strategy
func (s *APIStrategy) ApplyItem(ctx context.Context, item *outbox.Item) error {
	switch item.Action {
	case outbox.ActionCreate, outbox.ActionUpdate:
		tx, err := item.Transaction()
		if err != nil {
			return err
		}
		return s.api.UpsertExpense(ctx, tx)
	case outbox.ActionDelete:
		id, err := item.DeleteTarget()
		if err != nil {
			return err
		}
		return s.api.DeleteExpense(ctx, id)
	default:
		return fmt.Errorf("unknown outbox action %q", item.Action)
	}
}
