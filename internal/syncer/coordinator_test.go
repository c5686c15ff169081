package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/apisak-w/pwa-expense-manager/internal/auth"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/ledger"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/outbox"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/syncstate"
)

type coordinatorMocks struct {
	store    *MockStore
	queue    *MockQueue
	metadata *MockMetadataRepo
	ledger   *MockLedgerRepo
	strategy *MockStrategy
	source   *MockCredentialSource
}

func newTestCoordinator(t *testing.T, withLedger bool) (*Coordinator, *coordinatorMocks) {
	m := &coordinatorMocks{
		store:    &MockStore{},
		queue:    &MockQueue{},
		metadata: &MockMetadataRepo{},
		ledger:   &MockLedgerRepo{},
		strategy: &MockStrategy{},
		source:   &MockCredentialSource{},
	}

	var ledgerRepo ledger.Repository
	if withLedger {
		ledgerRepo = m.ledger
	}

	coord := NewCoordinator(
		slog.Default(), m.store, m.queue, m.metadata,
		ledgerRepo, m.strategy, m.source, 30*24*time.Hour,
	)
	return coord, m
}

func validCredential() *auth.Credential {
	return &auth.Credential{AccessToken: "token", ExpiresAt: time.Now().Add(time.Hour)}
}

func createItem(t *testing.T, id string, updatedAt int64) *outbox.Item {
	t.Helper()
	item, err := outbox.NewItem(outbox.ActionCreate, &expense.Transaction{
		ID:        id,
		Amount:    decimal.RequireFromString("12.50"),
		Date:      "2024-03-02",
		Kind:      expense.KindExpense,
		UpdatedAt: updatedAt,
	})
	require.NoError(t, err)
	return item
}

func deleteItem(t *testing.T, target string) *outbox.Item {
	t.Helper()
	item, err := outbox.NewItem(outbox.ActionDelete, outbox.DeletePayload{ID: target})
	require.NoError(t, err)
	return item
}

func TestCoordinator_ProcessQueue_DeferredWhenUnauthenticated(t *testing.T) {
	coord, m := newTestCoordinator(t, false)

	m.queue.On("List", mock.Anything).Return([]*outbox.Item{createItem(t, "t1", 1000)}, nil).Once()
	m.source.On("UsableCredential", mock.Anything).Return(nil, nil).Once()

	err := coord.ProcessQueue(context.Background())
	assert.NoError(t, err)

	m.queue.AssertExpectations(t)
	m.source.AssertExpectations(t)
	m.strategy.AssertNotCalled(t, "ApplyItem", mock.Anything, mock.Anything)
	m.queue.AssertNotCalled(t, "Dequeue", mock.Anything, mock.Anything)
}

func TestCoordinator_ProcessQueue_EmptyQueueSkipsCredentialCheck(t *testing.T) {
	coord, m := newTestCoordinator(t, false)

	m.queue.On("List", mock.Anything).Return([]*outbox.Item{}, nil).Once()

	err := coord.ProcessQueue(context.Background())
	assert.NoError(t, err)

	m.queue.AssertExpectations(t)
	m.source.AssertNotCalled(t, "UsableCredential", mock.Anything)
}

func TestCoordinator_ProcessQueue_PartialFailureIsolation(t *testing.T) {
	coord, m := newTestCoordinator(t, false)

	itemA := createItem(t, "a", 1000)
	itemB := createItem(t, "b", 2000)

	// First pass: A fails and stays queued, B succeeds and is removed
	m.queue.On("List", mock.Anything).Return([]*outbox.Item{itemA, itemB}, nil).Once()
	m.source.On("UsableCredential", mock.Anything).Return(validCredential(), nil)
	m.strategy.On("ApplyItem", mock.Anything, itemA).Return(errors.New("remote hiccup")).Once()
	m.strategy.On("ApplyItem", mock.Anything, itemB).Return(nil).Once()
	m.queue.On("Dequeue", mock.Anything, itemB.ID).Return(nil).Once()
	m.store.On("MarkSynced", mock.Anything, "b", true).Return(nil).Once()

	require.NoError(t, coord.ProcessQueue(context.Background()))

	// Second pass: only A remains and now succeeds
	m.queue.On("List", mock.Anything).Return([]*outbox.Item{itemA}, nil).Once()
	m.strategy.On("ApplyItem", mock.Anything, itemA).Return(nil).Once()
	m.queue.On("Dequeue", mock.Anything, itemA.ID).Return(nil).Once()
	m.store.On("MarkSynced", mock.Anything, "a", true).Return(nil).Once()

	require.NoError(t, coord.ProcessQueue(context.Background()))

	m.queue.AssertExpectations(t)
	m.strategy.AssertExpectations(t)
	m.store.AssertExpectations(t)
}

func TestCoordinator_ProcessQueue_DeleteNeedsNoLocalFollowUp(t *testing.T) {
	coord, m := newTestCoordinator(t, false)

	item := deleteItem(t, "t1")
	m.queue.On("List", mock.Anything).Return([]*outbox.Item{item}, nil).Once()
	m.source.On("UsableCredential", mock.Anything).Return(validCredential(), nil).Once()
	m.strategy.On("ApplyItem", mock.Anything, item).Return(nil).Once()
	m.queue.On("Dequeue", mock.Anything, item.ID).Return(nil).Once()

	require.NoError(t, coord.ProcessQueue(context.Background()))

	m.store.AssertNotCalled(t, "MarkSynced", mock.Anything, mock.Anything, mock.Anything)
}

func TestCoordinator_ProcessQueue_SingleFlight(t *testing.T) {
	coord, m := newTestCoordinator(t, false)

	started := make(chan struct{})
	release := make(chan struct{})

	m.queue.On("List", mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-release
	}).Return([]*outbox.Item{}, nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, coord.ProcessQueue(context.Background()))
	}()

	<-started
	// Second call while the first holds the guard: no-op, no queue read
	assert.NoError(t, coord.ProcessQueue(context.Background()))
	close(release)
	wg.Wait()

	m.queue.AssertNumberOfCalls(t, "List", 1)
}

func TestCoordinator_ProcessQueue_ProvisionsLedgerOnce(t *testing.T) {
	coord, m := newTestCoordinator(t, true)

	item := createItem(t, "t1", 1000)
	m.queue.On("List", mock.Anything).Return([]*outbox.Item{item}, nil).Once()
	m.source.On("UsableCredential", mock.Anything).Return(validCredential(), nil).Once()

	m.metadata.On("Get", mock.Anything).Return(&syncstate.Metadata{AutoSync: true}, nil).Once()
	m.ledger.On("FindOrCreate", mock.Anything).Return("sheet-1", nil).Once()
	m.metadata.On("Save", mock.Anything, mock.MatchedBy(func(meta *syncstate.Metadata) bool {
		return meta.LedgerID == "sheet-1"
	})).Return(nil).Once()

	m.strategy.On("ApplyItem", mock.Anything, item).Return(nil).Once()
	m.queue.On("Dequeue", mock.Anything, item.ID).Return(nil).Once()
	m.store.On("MarkSynced", mock.Anything, "t1", true).Return(nil).Once()

	require.NoError(t, coord.ProcessQueue(context.Background()))
	m.metadata.AssertExpectations(t)
	m.ledger.AssertExpectations(t)
}

func TestCoordinator_ProcessQueue_RebindsPersistedLedger(t *testing.T) {
	coord, m := newTestCoordinator(t, true)

	item := createItem(t, "t1", 1000)
	m.queue.On("List", mock.Anything).Return([]*outbox.Item{item}, nil).Once()
	m.source.On("UsableCredential", mock.Anything).Return(validCredential(), nil).Once()

	m.metadata.On("Get", mock.Anything).Return(&syncstate.Metadata{LedgerID: "sheet-1"}, nil).Once()
	m.ledger.On("Bind", "sheet-1").Once()

	m.strategy.On("ApplyItem", mock.Anything, item).Return(nil).Once()
	m.queue.On("Dequeue", mock.Anything, item.ID).Return(nil).Once()
	m.store.On("MarkSynced", mock.Anything, "t1", true).Return(nil).Once()

	require.NoError(t, coord.ProcessQueue(context.Background()))
	m.ledger.AssertNotCalled(t, "FindOrCreate", mock.Anything)
}

func TestCoordinator_SyncNow_NotAuthenticated(t *testing.T) {
	coord, m := newTestCoordinator(t, true)

	m.source.On("UsableCredential", mock.Anything).Return(nil, nil).Once()
	m.metadata.On("Get", mock.Anything).Return(&syncstate.Metadata{}, nil).Once()
	m.metadata.On("Save", mock.Anything, mock.MatchedBy(func(meta *syncstate.Metadata) bool {
		return meta.LastSyncError == ErrNotAuthenticated.Error() && meta.LastSyncAt == nil
	})).Return(nil).Once()

	err := coord.SyncNow(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	m.metadata.AssertExpectations(t)
}

func TestCoordinator_SyncNow_BusyWhilePassInFlight(t *testing.T) {
	coord, m := newTestCoordinator(t, false)

	started := make(chan struct{})
	release := make(chan struct{})

	m.source.On("UsableCredential", mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-release
	}).Return(validCredential(), nil).Once()
	m.queue.On("List", mock.Anything).Return([]*outbox.Item{}, nil).Once()
	m.metadata.On("Get", mock.Anything).Return(&syncstate.Metadata{}, nil).Once()
	m.metadata.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, coord.SyncNow(context.Background()))
	}()

	<-started
	err := coord.SyncNow(context.Background())
	assert.ErrorIs(t, err, ErrSyncBusy)
	close(release)
	wg.Wait()
}

func TestCoordinator_SubscribersNotifiedAfterPass(t *testing.T) {
	coord, m := newTestCoordinator(t, false)

	item := createItem(t, "t1", 1000)
	m.queue.On("List", mock.Anything).Return([]*outbox.Item{item}, nil)
	m.source.On("UsableCredential", mock.Anything).Return(validCredential(), nil)
	m.strategy.On("ApplyItem", mock.Anything, item).Return(nil)
	m.queue.On("Dequeue", mock.Anything, item.ID).Return(nil)
	m.store.On("MarkSynced", mock.Anything, "t1", true).Return(nil)

	calls := 0
	unsubscribe := coord.Subscribe(func() { calls++ })

	require.NoError(t, coord.ProcessQueue(context.Background()))
	assert.Equal(t, 1, calls)

	unsubscribe()
	require.NoError(t, coord.ProcessQueue(context.Background()))
	assert.Equal(t, 1, calls, "unsubscribed callbacks must not fire")
}
