package syncstate

import (
	"context"
	"database/sql"
	"time"
)

// DefaultAutoSyncInterval is used when metadata carries no explicit interval
const DefaultAutoSyncInterval = 5 * time.Minute

// Metadata is the device-local sync bookkeeping record. LedgerID is empty
// until the remote ledger has been provisioned; LastSyncAt is nil until the
// first successful full sync pass.
type Metadata struct {
	LedgerID                string `json:"ledger_id"`
	LastSyncAt              *int64 `json:"last_sync_at"`
	LastSyncError           string `json:"last_sync_error,omitempty"`
	AutoSync                bool   `json:"auto_sync"`
	AutoSyncIntervalMinutes int    `json:"auto_sync_interval_minutes"`
}

// AutoSyncInterval returns the configured auto-sync cadence
func (m *Metadata) AutoSyncInterval() time.Duration {
	if m.AutoSyncIntervalMinutes <= 0 {
		return DefaultAutoSyncInterval
	}
	return time.Duration(m.AutoSyncIntervalMinutes) * time.Minute
}

// Repository persists sync metadata. Get returns defaults when no record
// exists yet.
type Repository interface {
	Get(ctx context.Context) (*Metadata, error)
	Save(ctx context.Context, m *Metadata) error

	WithTx(tx *sql.Tx) Repository
}
