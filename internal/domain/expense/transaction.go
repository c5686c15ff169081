package expense

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used for Transaction.Date.
// Dates carry no time component; lexicographic order equals chronological order.
const DateLayout = "2006-01-02"

// Kind classifies a transaction as money coming in or going out
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether k is a known transaction kind
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Transaction is the synchronized record. ID is client-generated, globally
// unique and never reused. UpdatedAt (unix milliseconds) is refreshed on every
// mutation and is the sole conflict tiebreaker.
type Transaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Kind        Kind            `json:"kind"`
	Cleared     bool            `json:"cleared"`
	Synced      bool            `json:"synced"`
	UpdatedAt   int64           `json:"updated_at"`
	CreatedAt   int64           `json:"created_at,omitempty"`
}

// Validate checks the fields a caller must supply before a local write
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return errors.New("transaction id is required")
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("invalid transaction kind: %q", t.Kind)
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return fmt.Errorf("invalid transaction date %q: %w", t.Date, err)
	}
	return nil
}

// SortTime returns the secondary ordering key: creation time when known,
// otherwise the last update time.
func (t *Transaction) SortTime() int64 {
	if t.CreatedAt != 0 {
		return t.CreatedAt
	}
	return t.UpdatedAt
}

// SortCanonical orders transactions by date descending, then by
// creation/update time descending. This is the ordering the remote ledger is
// kept in and the ordering List results use.
func SortCanonical(txs []*Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date > txs[j].Date
		}
		return txs[i].SortTime() > txs[j].SortTime()
	})
}
