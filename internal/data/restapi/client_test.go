package restapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apisak-w/pwa-expense-manager/internal/auth"
	"github.com/apisak-w/pwa-expense-manager/internal/config"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
)

type fakeExpenseAPI struct {
	t *testing.T

	mu       sync.Mutex
	expenses map[string]expense.Transaction
}

func (f *fakeExpenseAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer api-token" {
			f.t.Errorf("unexpected authorization header %q", got)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		id := strings.TrimPrefix(r.URL.Path, "/expenses/")
		if id == "" || id == r.URL.Path {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			var tx expense.Transaction
			require.NoError(f.t, json.NewDecoder(r.Body).Decode(&tx))
			f.expenses[id] = tx
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			if _, ok := f.expenses[id]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(f.expenses, id)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newTestClient(t *testing.T, token string) (*Client, *fakeExpenseAPI) {
	fake := &fakeExpenseAPI{t: t, expenses: make(map[string]expense.Transaction)}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg := &config.RemoteAPIConfig{BaseURL: srv.URL, RequestTimeout: 5 * time.Second}
	return NewClient(slog.Default(), cfg, &auth.StaticSource{Token: token}), fake
}

func TestClient_UpsertExpense(t *testing.T) {
	client, fake := newTestClient(t, "api-token")
	ctx := context.Background()

	tx := &expense.Transaction{
		ID:        "t1",
		Amount:    decimal.RequireFromString("12.50"),
		Category:  "food",
		Date:      "2024-03-02",
		Kind:      expense.KindExpense,
		UpdatedAt: 1000,
	}

	require.NoError(t, client.UpsertExpense(ctx, tx))
	require.NoError(t, client.UpsertExpense(ctx, tx))
	require.Len(t, fake.expenses, 1, "re-applying the same record must not duplicate it")

	tx.Amount = decimal.RequireFromString("20.00")
	tx.UpdatedAt = 2000
	require.NoError(t, client.UpsertExpense(ctx, tx))

	got := fake.expenses["t1"]
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, int64(2000), got.UpdatedAt)
}

func TestClient_DeleteExpense(t *testing.T) {
	client, fake := newTestClient(t, "api-token")
	ctx := context.Background()

	fake.expenses["t1"] = expense.Transaction{ID: "t1"}

	require.NoError(t, client.DeleteExpense(ctx, "t1"))
	assert.Empty(t, fake.expenses)

	// Already-gone records are not an error
	require.NoError(t, client.DeleteExpense(ctx, "t1"))
}

func TestClient_NoCredential(t *testing.T) {
	client, _ := newTestClient(t, "")

	err := client.UpsertExpense(context.Background(), &expense.Transaction{ID: "t1"})
	assert.ErrorIs(t, err, ErrNoCredential)

	err = client.DeleteExpense(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrNoCredential)
}
