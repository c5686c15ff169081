package syncer

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/apisak-w/pwa-expense-manager/internal/auth"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/outbox"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/syncstate"
)

// MockStore for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, tx *expense.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, id string) (*expense.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*expense.Transaction), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) List(ctx context.Context) ([]*expense.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*expense.Transaction), args.Error(1)
}

func (m *MockStore) MarkSynced(ctx context.Context, id string, synced bool) error {
	args := m.Called(ctx, id, synced)
	return args.Error(0)
}

func (m *MockStore) PutTombstone(ctx context.Context, ts *expense.Tombstone) error {
	args := m.Called(ctx, ts)
	return args.Error(0)
}

func (m *MockStore) ListTombstones(ctx context.Context) ([]*expense.Tombstone, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*expense.Tombstone), args.Error(1)
}

func (m *MockStore) PruneTombstones(ctx context.Context, before int64) error {
	args := m.Called(ctx, before)
	return args.Error(0)
}

func (m *MockStore) WithTx(tx *sql.Tx) expense.Store {
	return m
}

// MockQueue for testing
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, item *outbox.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockQueue) List(ctx context.Context) ([]*outbox.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Item), args.Error(1)
}

func (m *MockQueue) Dequeue(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQueue) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockQueue) WithTx(tx *sql.Tx) outbox.Queue {
	return m
}

// MockMetadataRepo for testing
type MockMetadataRepo struct {
	mock.Mock
}

func (m *MockMetadataRepo) Get(ctx context.Context) (*syncstate.Metadata, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncstate.Metadata), args.Error(1)
}

func (m *MockMetadataRepo) Save(ctx context.Context, meta *syncstate.Metadata) error {
	args := m.Called(ctx, meta)
	return args.Error(0)
}

func (m *MockMetadataRepo) WithTx(tx *sql.Tx) syncstate.Repository {
	return m
}

// MockLedgerRepo for testing
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) FindOrCreate(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockLedgerRepo) Bind(id string) {
	m.Called(id)
}

func (m *MockLedgerRepo) ReadAll(ctx context.Context) ([]*expense.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*expense.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) WriteAll(ctx context.Context, txs []*expense.Transaction) error {
	args := m.Called(ctx, txs)
	return args.Error(0)
}

func (m *MockLedgerRepo) Upsert(ctx context.Context, tx *expense.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockLedgerRepo) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLedgerRepo) LastSync(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) SetLastSync(ctx context.Context, ts int64) error {
	args := m.Called(ctx, ts)
	return args.Error(0)
}

// MockStrategy for testing
type MockStrategy struct {
	mock.Mock
}

func (m *MockStrategy) ApplyItem(ctx context.Context, item *outbox.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

// MockCredentialSource for testing
type MockCredentialSource struct {
	mock.Mock
}

func (m *MockCredentialSource) UsableCredential(ctx context.Context) (*auth.Credential, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Credential), args.Error(1)
}
