package syncer

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/outbox"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/syncstate"
	"github.com/apisak-w/pwa-expense-manager/internal/platform/persistence"
)

// Service is the boundary the rest of the application calls into. Every
// mutation performs the local store write and the outbox append in one sqlite
// transaction, then triggers an opportunistic drain without blocking the
// caller. Local writes always succeed regardless of remote state.
type Service struct {
	logger    *slog.Logger
	db        *persistence.SQLiteDB
	store     expense.Store
	queue     outbox.Queue
	metadata  syncstate.Repository
	coord     *Coordinator
	scheduler *Scheduler
}

// NewService creates the sync boundary service
func NewService(
	logger *slog.Logger,
	db *persistence.SQLiteDB,
	store expense.Store,
	queue outbox.Queue,
	metadata syncstate.Repository,
	coord *Coordinator,
	scheduler *Scheduler,
) *Service {
	return &Service{
		logger:    logger,
		db:        db,
		store:     store,
		queue:     queue,
		metadata:  metadata,
		coord:     coord,
		scheduler: scheduler,
	}
}

// EnqueueCreate stores a new transaction and queues its remote creation.
// An empty id is assigned; updatedAt is always refreshed here so the caller
// cannot forge conflict-resolution ordering.
func (s *Service) EnqueueCreate(ctx context.Context, tx *expense.Transaction) (*expense.Transaction, error) {
	now := time.Now().UnixMilli()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt == 0 {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	tx.Synced = false

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, tx, outbox.ActionCreate); err != nil {
		return nil, err
	}

	s.scheduler.Kick()
	return tx, nil
}

// EnqueueUpdate replaces an existing transaction and queues its remote
// update. The stored creation time is preserved.
func (s *Service) EnqueueUpdate(ctx context.Context, tx *expense.Transaction) (*expense.Transaction, error) {
	existing, err := s.store.Get(ctx, tx.ID)
	if err != nil {
		return nil, err
	}

	tx.CreatedAt = existing.CreatedAt
	tx.UpdatedAt = time.Now().UnixMilli()
	tx.Synced = false

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, tx, outbox.ActionUpdate); err != nil {
		return nil, err
	}

	s.scheduler.Kick()
	return tx, nil
}

func (s *Service) enqueue(ctx context.Context, tx *expense.Transaction, action outbox.Action) error {
	item, err := outbox.NewItem(action, tx)
	if err != nil {
		return err
	}

	return s.db.ExecuteTx(ctx, func(sqlTx *sql.Tx) error {
		if err := s.store.WithTx(sqlTx).Put(ctx, tx); err != nil {
			return err
		}
		return s.queue.WithTx(sqlTx).Enqueue(ctx, item)
	})
}

// EnqueueDelete removes a transaction locally, records a tombstone so the
// merge pass cannot resurrect it, and queues the remote deletion.
func (s *Service) EnqueueDelete(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}

	item, err := outbox.NewItem(outbox.ActionDelete, outbox.DeletePayload{ID: id})
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()

	err = s.db.ExecuteTx(ctx, func(sqlTx *sql.Tx) error {
		store := s.store.WithTx(sqlTx)
		if err := store.Delete(ctx, id); err != nil {
			return err
		}
		if err := store.PutTombstone(ctx, &expense.Tombstone{ID: id, DeletedAt: now}); err != nil {
			return err
		}
		return s.queue.WithTx(sqlTx).Enqueue(ctx, item)
	})
	if err != nil {
		return err
	}

	s.scheduler.Kick()
	return nil
}

// Get returns one local transaction
func (s *Service) Get(ctx context.Context, id string) (*expense.Transaction, error) {
	return s.store.Get(ctx, id)
}

// List returns all local transactions in canonical order
func (s *Service) List(ctx context.Context) ([]*expense.Transaction, error) {
	return s.store.List(ctx)
}

// SyncNow runs an explicit full sync pass and surfaces its outcome
func (s *Service) SyncNow(ctx context.Context) error {
	return s.coord.SyncNow(ctx)
}

// Subscribe registers a callback invoked after every completed sync pass
func (s *Service) Subscribe(fn func()) func() {
	return s.coord.Subscribe(fn)
}

// Metadata returns the current sync bookkeeping record
func (s *Service) Metadata(ctx context.Context) (*syncstate.Metadata, error) {
	return s.metadata.Get(ctx)
}

// PendingCount reports how many outbox items await remote application
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	items, err := s.queue.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// SetAutoSync toggles the periodic sync timer. intervalMinutes replaces the
// cadence when positive and keeps the stored one when zero.
func (s *Service) SetAutoSync(ctx context.Context, enabled bool, intervalMinutes int) (*syncstate.Metadata, error) {
	meta, err := s.metadata.Get(ctx)
	if err != nil {
		return nil, err
	}

	meta.AutoSync = enabled
	if intervalMinutes > 0 {
		meta.AutoSyncIntervalMinutes = intervalMinutes
	}

	if err := s.metadata.Save(ctx, meta); err != nil {
		return nil, err
	}
	return meta, nil
}
