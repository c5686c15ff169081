package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
	"github.com/apisak-w/pwa-expense-manager/internal/platform/persistence"
)

// TransactionRepository implements the expense.Store interface for sqlite
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new sqlite transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.SQLiteDB) expense.Store {
	return &TransactionRepository{
		querier: db.Handle(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations.
// This ensures a local write is atomic with its outbox append.
func (r *TransactionRepository) WithTx(tx *sql.Tx) expense.Store {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Put upserts a transaction by id; last write replaces the row wholesale
func (r *TransactionRepository) Put(ctx context.Context, tx *expense.Transaction) error {
	query := `
		INSERT INTO transactions (id, amount, description, category, date, kind, cleared, synced, updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			amount = excluded.amount,
			description = excluded.description,
			category = excluded.category,
			date = excluded.date,
			kind = excluded.kind,
			cleared = excluded.cleared,
			synced = excluded.synced,
			updated_at = excluded.updated_at,
			created_at = excluded.created_at
	`

	_, err := r.querier.ExecContext(ctx, query,
		tx.ID,
		tx.Amount.String(),
		tx.Description,
		tx.Category,
		tx.Date,
		string(tx.Kind),
		tx.Cleared,
		tx.Synced,
		tx.UpdatedAt,
		nullableMillis(tx.CreatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to put transaction", "id", tx.ID, "error", err)
		return fmt.Errorf("failed to put transaction: %w", err)
	}

	return nil
}

// Get retrieves a transaction by id.
// Returns ErrTransactionNotFound if no row exists.
func (r *TransactionRepository) Get(ctx context.Context, id string) (*expense.Transaction, error) {
	query := `
		SELECT id, amount, description, category, date, kind, cleared, synced, updated_at, created_at
		FROM transactions
		WHERE id = ?
	`

	tx, err := scanTransaction(r.querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, expense.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// Delete removes a transaction.
// Returns ErrTransactionNotFound if no row exists.
func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.querier.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete transaction", "id", id, "error", err)
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return expense.ErrTransactionNotFound{ID: id}
	}

	return nil
}

// List returns all transactions in the canonical order: date descending, then
// creation/update time descending.
func (r *TransactionRepository) List(ctx context.Context) ([]*expense.Transaction, error) {
	query := `
		SELECT id, amount, description, category, date, kind, cleared, synced, updated_at, created_at
		FROM transactions
		ORDER BY date DESC, COALESCE(created_at, updated_at) DESC
	`

	rows, err := r.querier.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list transactions", "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*expense.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return txs, nil
}

// MarkSynced flips the synced flag. The sync coordinator is the sole caller.
func (r *TransactionRepository) MarkSynced(ctx context.Context, id string, synced bool) error {
	result, err := r.querier.ExecContext(ctx, `UPDATE transactions SET synced = ? WHERE id = ?`, synced, id)
	if err != nil {
		r.logger.Error("Failed to mark transaction synced", "id", id, "error", err)
		return fmt.Errorf("failed to mark transaction synced: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return expense.ErrTransactionNotFound{ID: id}
	}

	return nil
}

// PutTombstone records a local deletion, replacing any earlier tombstone for
// the same id
func (r *TransactionRepository) PutTombstone(ctx context.Context, ts *expense.Tombstone) error {
	query := `
		INSERT INTO tombstones (id, deleted_at)
		VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET deleted_at = excluded.deleted_at
	`

	if _, err := r.querier.ExecContext(ctx, query, ts.ID, ts.DeletedAt); err != nil {
		r.logger.Error("Failed to put tombstone", "id", ts.ID, "error", err)
		return fmt.Errorf("failed to put tombstone: %w", err)
	}

	return nil
}

// ListTombstones returns all recorded local deletions
func (r *TransactionRepository) ListTombstones(ctx context.Context) ([]*expense.Tombstone, error) {
	rows, err := r.querier.QueryContext(ctx, `SELECT id, deleted_at FROM tombstones`)
	if err != nil {
		r.logger.Error("Failed to list tombstones", "error", err)
		return nil, fmt.Errorf("failed to list tombstones: %w", err)
	}
	defer rows.Close()

	var tombstones []*expense.Tombstone
	for rows.Next() {
		var ts expense.Tombstone
		if err := rows.Scan(&ts.ID, &ts.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone: %w", err)
		}
		tombstones = append(tombstones, &ts)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over tombstones: %w", err)
	}

	return tombstones, nil
}

// PruneTombstones drops tombstones deleted before the given unix-millisecond
// cutoff
func (r *TransactionRepository) PruneTombstones(ctx context.Context, before int64) error {
	if _, err := r.querier.ExecContext(ctx, `DELETE FROM tombstones WHERE deleted_at < ?`, before); err != nil {
		r.logger.Error("Failed to prune tombstones", "error", err)
		return fmt.Errorf("failed to prune tombstones: %w", err)
	}
	return nil
}

// rowScanner matches both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*expense.Transaction, error) {
	var (
		tx        expense.Transaction
		amount    string
		kind      string
		createdAt sql.NullInt64
	)

	err := row.Scan(
		&tx.ID,
		&amount,
		&tx.Description,
		&tx.Category,
		&tx.Date,
		&kind,
		&tx.Cleared,
		&tx.Synced,
		&tx.UpdatedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("stored amount %q is not a decimal: %w", amount, err)
	}
	tx.Amount = dec
	tx.Kind = expense.Kind(kind)
	if createdAt.Valid {
		tx.CreatedAt = createdAt.Int64
	}

	return &tx, nil
}

func nullableMillis(ms int64) any {
	if ms == 0 {
		return nil
	}
	return ms
}
