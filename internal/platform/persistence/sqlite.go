package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"github.com/apisak-w/pwa-expense-manager/internal/config"
)

// Querier supports database operations for both the shared handle and
// transactions
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Ensure interfaces are satisfied (compile-time check)
var _ Querier = (*sql.DB)(nil)
var _ Querier = (*sql.Tx)(nil)

// SQLiteDB wraps the local database handle
type SQLiteDB struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteDB runs migrations, opens the database file and applies the
// pragmas the sync engine relies on (WAL for durable concurrent reads, a busy
// timeout so writers queue instead of failing, FK enforcement).
func NewSQLiteDB(ctx context.Context, logger *slog.Logger, cfg *config.SQLiteConfig) (*SQLiteDB, error) {
	if err := RunMigrations(fmt.Sprintf("sqlite3://%s", cfg.Path), cfg.MigrationsPath); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// sqlite permits a single writer; funneling all access through one
	// connection avoids SQLITE_BUSY under concurrent drains and mutations.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	logger.Info("Connected to sqlite", "path", cfg.Path)

	return &SQLiteDB{
		db:     db,
		logger: logger,
	}, nil
}

// Handle returns the underlying database handle
func (d *SQLiteDB) Handle() *sql.DB {
	return d.db
}

// Close closes the database handle
func (d *SQLiteDB) Close() {
	if err := d.db.Close(); err != nil {
		d.logger.Error("Error closing sqlite database", "error", err)
		return
	}
	d.logger.Info("Closed sqlite database")
}

// ExecuteTx runs fn in a transaction, rolling back on error or panic
func (d *SQLiteDB) ExecuteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
