package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/apisak-w/pwa-expense-manager/internal/config"
	"github.com/apisak-w/pwa-expense-manager/internal/platform/persistence"
)

// newTestDB opens a migrated throwaway database in a per-test temp dir
func newTestDB(t *testing.T) *persistence.SQLiteDB {
	t.Helper()

	cfg := &config.SQLiteConfig{
		Path:           filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:    5 * time.Second,
		MigrationsPath: filepath.Join("..", "..", "..", "migrations", "sqlite"),
	}

	db, err := persistence.NewSQLiteDB(context.Background(), slog.Default(), cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}
