package handler

import (
	"github.com/shopspring/decimal"

	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/syncstate"
)

// TransactionRequest represents a request to create or replace a transaction.
// Amount travels as a string so decimal values survive the JSON boundary.
type TransactionRequest struct {
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	Date        string `json:"date" binding:"required,datetime=2006-01-02"`
	Kind        string `json:"kind" binding:"required,oneof=income expense"`
	Cleared     bool   `json:"cleared"`
}

// ToDomain converts the request into a domain transaction
func (r *TransactionRequest) ToDomain() (*expense.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, err
	}
	return &expense.Transaction{
		Amount:      amount,
		Description: r.Description,
		Category:    r.Category,
		Date:        r.Date,
		Kind:        expense.Kind(r.Kind),
		Cleared:     r.Cleared,
	}, nil
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Cleared     bool   `json:"cleared"`
	Synced      bool   `json:"synced"`
	UpdatedAt   int64  `json:"updated_at"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// NewTransactionResponse converts a domain transaction for API output
func NewTransactionResponse(tx *expense.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		Amount:      tx.Amount.String(),
		Description: tx.Description,
		Category:    tx.Category,
		Date:        tx.Date,
		Kind:        string(tx.Kind),
		Cleared:     tx.Cleared,
		Synced:      tx.Synced,
		UpdatedAt:   tx.UpdatedAt,
		CreatedAt:   tx.CreatedAt,
	}
}

// TransactionListResponse represents a list of transactions in API responses
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// AutoSyncRequest represents a request to reconfigure the periodic sync timer
type AutoSyncRequest struct {
	Enabled         *bool `json:"enabled" binding:"required"`
	IntervalMinutes int   `json:"interval_minutes" binding:"min=0"`
}

// SyncStatusResponse represents the sync engine state in API responses
type SyncStatusResponse struct {
	LedgerID                string `json:"ledger_id,omitempty"`
	LastSyncAt              *int64 `json:"last_sync_at"`
	LastSyncError           string `json:"last_sync_error,omitempty"`
	AutoSync                bool   `json:"auto_sync"`
	AutoSyncIntervalMinutes int    `json:"auto_sync_interval_minutes"`
	PendingItems            int    `json:"pending_items"`
}

// NewSyncStatusResponse converts sync metadata and queue depth for API output
func NewSyncStatusResponse(meta *syncstate.Metadata, pending int) SyncStatusResponse {
	return SyncStatusResponse{
		LedgerID:                meta.LedgerID,
		LastSyncAt:              meta.LastSyncAt,
		LastSyncError:           meta.LastSyncError,
		AutoSync:                meta.AutoSync,
		AutoSyncIntervalMinutes: meta.AutoSyncIntervalMinutes,
		PendingItems:            pending,
	}
}
