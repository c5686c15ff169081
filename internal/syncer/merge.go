package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
)

// merge runs the bidirectional reconciliation pass. Conflicts resolve
// last-write-wins on updatedAt, with the local copy winning ties. Tombstones
// suppress remote records the device deleted while offline, so deletions do
// not resurrect.
func (c *Coordinator) merge(ctx context.Context) error {
	local, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to read local transactions: %w", err)
	}
	remote, err := c.ledger.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read remote transactions: %w", err)
	}
	tombstones, err := c.store.ListTombstones(ctx)
	if err != nil {
		return fmt.Errorf("failed to read tombstones: %w", err)
	}

	deleted := make(map[string]int64, len(tombstones))
	for _, ts := range tombstones {
		deleted[ts.ID] = ts.DeletedAt
	}

	byID := make(map[string]*expense.Transaction, len(local))
	for _, tx := range local {
		byID[tx.ID] = tx
	}

	// Pull phase: bring strictly-newer remote copies and remote-only records
	// into the local store. A tombstone at least as new as the remote copy
	// means the record was deleted here after the remote last saw it, so it
	// is suppressed instead of materialized.
	for _, r := range remote {
		if deletedAt, ok := deleted[r.ID]; ok && deletedAt >= r.UpdatedAt {
			continue
		}

		l, ok := byID[r.ID]
		if !ok || r.UpdatedAt > l.UpdatedAt {
			if err := c.store.Put(ctx, r); err != nil {
				return fmt.Errorf("failed to apply remote transaction %s locally: %w", r.ID, err)
			}
		}
	}

	// Push phase: re-read both sides and rebuild the merged set, remote
	// entries first, local entries overriding on updatedAt >= (local wins
	// ties). The remote is then rewritten to exactly this set.
	local, err = c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to re-read local transactions: %w", err)
	}
	remote, err = c.ledger.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to re-read remote transactions: %w", err)
	}

	merged := make(map[string]*expense.Transaction, len(remote)+len(local))
	for _, r := range remote {
		if deletedAt, ok := deleted[r.ID]; ok && deletedAt >= r.UpdatedAt {
			continue
		}
		merged[r.ID] = r
	}
	for _, l := range local {
		if existing, ok := merged[l.ID]; !ok || l.UpdatedAt >= existing.UpdatedAt {
			merged[l.ID] = l
		}
	}

	txs := make([]*expense.Transaction, 0, len(merged))
	for _, tx := range merged {
		txs = append(txs, tx)
	}
	expense.SortCanonical(txs)

	if err := c.ledger.WriteAll(ctx, txs); err != nil {
		return fmt.Errorf("failed to rewrite remote ledger: %w", err)
	}

	now := time.Now().UnixMilli()
	if err := c.ledger.SetLastSync(ctx, now); err != nil {
		c.logger.Warn("Failed to write remote last-sync marker", "error", err)
	}

	// Tombstones older than the retention window have done their job on every
	// device that synced in the meantime
	if err := c.store.PruneTombstones(ctx, now-c.tombstoneRetention.Milliseconds()); err != nil {
		c.logger.Warn("Failed to prune tombstones", "error", err)
	}

	c.logger.Info("Bidirectional merge complete", "transactions", len(txs))
	return nil
}
