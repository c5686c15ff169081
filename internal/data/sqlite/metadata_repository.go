package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/apisak-w/pwa-expense-manager/internal/domain/syncstate"
	"github.com/apisak-w/pwa-expense-manager/internal/platform/persistence"
)

// MetadataRepository implements the syncstate.Repository interface for sqlite.
// Metadata lives in a single fixed row created by the initial migration.
type MetadataRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewMetadataRepository creates a new sqlite sync metadata repository
func NewMetadataRepository(logger *slog.Logger, db *persistence.SQLiteDB) syncstate.Repository {
	return &MetadataRepository{
		querier: db.Handle(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *MetadataRepository) WithTx(tx *sql.Tx) syncstate.Repository {
	return &MetadataRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Get reads the metadata row, seeding it first when it is missing so the
// schema's column defaults apply
func (r *MetadataRepository) Get(ctx context.Context) (*syncstate.Metadata, error) {
	m, err := r.get(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := r.querier.ExecContext(ctx, `INSERT OR IGNORE INTO sync_metadata (id) VALUES (1)`); err != nil {
			return nil, fmt.Errorf("failed to seed sync metadata: %w", err)
		}
		m, err = r.get(ctx)
	}
	if err != nil {
		r.logger.Error("Failed to get sync metadata", "error", err)
		return nil, fmt.Errorf("failed to get sync metadata: %w", err)
	}

	return m, nil
}

func (r *MetadataRepository) get(ctx context.Context) (*syncstate.Metadata, error) {
	query := `
		SELECT ledger_id, last_sync_at, last_sync_error, auto_sync, auto_sync_interval_minutes
		FROM sync_metadata
		WHERE id = 1
	`

	var (
		m          syncstate.Metadata
		lastSyncAt sql.NullInt64
	)
	err := r.querier.QueryRowContext(ctx, query).Scan(
		&m.LedgerID,
		&lastSyncAt,
		&m.LastSyncError,
		&m.AutoSync,
		&m.AutoSyncIntervalMinutes,
	)
	if err != nil {
		return nil, err
	}

	if lastSyncAt.Valid {
		v := lastSyncAt.Int64
		m.LastSyncAt = &v
	}

	return &m, nil
}

// Save persists the metadata row
func (r *MetadataRepository) Save(ctx context.Context, m *syncstate.Metadata) error {
	query := `
		UPDATE sync_metadata
		SET ledger_id = ?, last_sync_at = ?, last_sync_error = ?, auto_sync = ?, auto_sync_interval_minutes = ?
		WHERE id = 1
	`

	var lastSyncAt any
	if m.LastSyncAt != nil {
		lastSyncAt = *m.LastSyncAt
	}

	_, err := r.querier.ExecContext(ctx, query,
		m.LedgerID,
		lastSyncAt,
		m.LastSyncError,
		m.AutoSync,
		m.AutoSyncIntervalMinutes,
	)
	if err != nil {
		r.logger.Error("Failed to save sync metadata", "error", err)
		return fmt.Errorf("failed to save sync metadata: %w", err)
	}

	return nil
}
