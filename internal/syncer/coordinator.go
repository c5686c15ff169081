// Package syncer contains the offline synchronization engine: the single-
// flight coordinator draining the durable outbox, the bidirectional merge
// pass against the remote ledger, and the triggers that schedule both.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apisak-w/pwa-expense-manager/internal/auth"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/ledger"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/outbox"
	"github.com/apisak-w/pwa-expense-manager/internal/domain/syncstate"
)

// ErrNotAuthenticated is returned by SyncNow when no usable credential is
// available; background passes treat the same condition as a silent deferral.
var ErrNotAuthenticated = errors.New("not authenticated with the remote backend")

// ErrSyncBusy is returned by SyncNow when another sync pass holds the
// single-flight guard
var ErrSyncBusy = errors.New("a sync pass is already in progress")

// Coordinator orchestrates queue draining and the bidirectional merge pass.
// At most one pass runs at a time; overlapping background triggers collapse
// into a no-op.
type Coordinator struct {
	logger   *slog.Logger
	store    expense.Store
	queue    outbox.Queue
	metadata syncstate.Repository
	ledger   ledger.Repository // nil when the backend has no full-ledger surface
	strategy Strategy
	source   auth.Source

	tombstoneRetention time.Duration

	busy atomic.Bool

	mu        sync.Mutex
	listeners map[int]func()
	nextID    int
}

// NewCoordinator creates the sync coordinator. ledgerRepo may be nil for
// backends that only support per-item application; SyncNow then degrades to a
// drain pass.
func NewCoordinator(
	logger *slog.Logger,
	store expense.Store,
	queue outbox.Queue,
	metadata syncstate.Repository,
	ledgerRepo ledger.Repository,
	strategy Strategy,
	source auth.Source,
	tombstoneRetention time.Duration,
) *Coordinator {
	return &Coordinator{
		logger:             logger,
		store:              store,
		queue:              queue,
		metadata:           metadata,
		ledger:             ledgerRepo,
		strategy:           strategy,
		source:             source,
		tombstoneRetention: tombstoneRetention,
		listeners:          make(map[int]func()),
	}
}

// Subscribe registers a callback invoked after every completed drain or merge
// pass. The returned function removes the subscription.
func (c *Coordinator) Subscribe(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ProcessQueue drains the outbox once. It is a no-op when another pass is
// running, when the queue is empty, or when no credential is available
// (deferred, not an error). Item failures are logged and retried on the next
// pass; only whole-pass failures (queue read, ledger provisioning) propagate.
func (c *Coordinator) ProcessQueue(ctx context.Context) error {
	if !c.busy.CompareAndSwap(false, true) {
		return nil
	}
	defer c.busy.Store(false)

	items, err := c.queue.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	cred, err := c.source.UsableCredential(ctx)
	if err != nil {
		return err
	}
	if cred == nil {
		c.logger.Debug("No usable credential, deferring queue drain", "pending", len(items))
		return nil
	}

	if err := c.ensureLedger(ctx); err != nil {
		return err
	}

	c.drain(ctx, items)
	c.notify()
	return nil
}

// drain applies items in insertion order. A failing item stays queued and
// the pass moves on to the next one.
func (c *Coordinator) drain(ctx context.Context, items []*outbox.Item) {
	for _, item := range items {
		if err := c.strategy.ApplyItem(ctx, item); err != nil {
			c.logger.Warn("Failed to apply outbox item, will retry",
				"item_id", item.ID, "action", item.Action, "error", err)
			continue
		}

		if err := c.queue.Dequeue(ctx, item.ID); err != nil {
			c.logger.Error("Failed to dequeue applied outbox item", "item_id", item.ID, "error", err)
			continue
		}

		if item.Action == outbox.ActionDelete {
			continue
		}
		tx, err := item.Transaction()
		if err != nil {
			c.logger.Error("Applied outbox item carries an undecodable payload", "item_id", item.ID, "error", err)
			continue
		}
		if err := c.store.MarkSynced(ctx, tx.ID, true); err != nil {
			var notFound expense.ErrTransactionNotFound
			if errors.As(err, &notFound) {
				// The record was deleted locally after this item was queued
				continue
			}
			c.logger.Error("Failed to mark transaction synced", "id", tx.ID, "error", err)
		}
	}
}

// SyncNow runs an explicit full sync pass: drain the outbox, then run the
// bidirectional merge against the remote ledger. Unlike background passes it
// surfaces "busy" and "not authenticated" to the caller.
func (c *Coordinator) SyncNow(ctx context.Context) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrSyncBusy
	}
	defer c.busy.Store(false)

	err := c.syncLocked(ctx)

	now := time.Now().UnixMilli()
	if metaErr := c.recordOutcome(ctx, now, err); metaErr != nil {
		c.logger.Error("Failed to record sync outcome", "error", metaErr)
	}

	c.notify()
	return err
}

func (c *Coordinator) syncLocked(ctx context.Context) error {
	cred, err := c.source.UsableCredential(ctx)
	if err != nil {
		return err
	}
	if cred == nil {
		return ErrNotAuthenticated
	}

	if err := c.ensureLedger(ctx); err != nil {
		return err
	}

	items, err := c.queue.List(ctx)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		c.drain(ctx, items)
	}

	if c.ledger == nil {
		return nil
	}
	return c.merge(ctx)
}

// recordOutcome persists the pass result into sync metadata: the last-sync
// timestamp on success, the error message on failure.
func (c *Coordinator) recordOutcome(ctx context.Context, now int64, passErr error) error {
	meta, err := c.metadata.Get(ctx)
	if err != nil {
		return err
	}

	if passErr != nil {
		meta.LastSyncError = passErr.Error()
	} else {
		meta.LastSyncAt = &now
		meta.LastSyncError = ""
	}

	return c.metadata.Save(ctx, meta)
}

// ensureLedger resolves the remote ledger id once per pairing: a persisted id
// is re-bound without a round trip, otherwise the ledger is discovered or
// created and the id persisted before any item is applied.
func (c *Coordinator) ensureLedger(ctx context.Context) error {
	if c.ledger == nil {
		return nil
	}

	meta, err := c.metadata.Get(ctx)
	if err != nil {
		return err
	}
	if meta.LedgerID != "" {
		c.ledger.Bind(meta.LedgerID)
		return nil
	}

	id, err := c.ledger.FindOrCreate(ctx)
	if err != nil {
		return err
	}

	meta.LedgerID = id
	return c.metadata.Save(ctx, meta)
}
