package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/apisak-w/pwa-expense-manager/internal/domain/syncstate"
)

// Scheduler wires the three drain triggers to the coordinator: opportunistic
// kicks after local mutations, offline-to-online transitions, and the
// periodic auto-sync timer. All triggers are fire-and-forget; callers never
// block on remote I/O.
type Scheduler struct {
	logger   *slog.Logger
	coord    *Coordinator
	metadata syncstate.Repository
	pool     *ants.Pool
	online   <-chan struct{}

	// cadence, when non-zero, replaces the metadata-driven timer interval
	cadence time.Duration
}

// NewScheduler creates the sync trigger scheduler. online may be nil when the
// credential source emits no connectivity events.
func NewScheduler(
	logger *slog.Logger,
	coord *Coordinator,
	metadata syncstate.Repository,
	online <-chan struct{},
	poolSize int,
) (*Scheduler, error) {
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		logger:   logger,
		coord:    coord,
		metadata: metadata,
		pool:     pool,
		online:   online,
	}, nil
}

// Kick submits an opportunistic queue drain without blocking the caller.
// A saturated pool drops the trigger; the pending items are picked up by the
// next one.
func (s *Scheduler) Kick() {
	err := s.pool.Submit(func() {
		if err := s.coord.ProcessQueue(context.Background()); err != nil {
			s.logger.Warn("Background queue drain failed", "error", err)
		}
	})
	if err != nil {
		s.logger.Debug("Drain trigger dropped", "error", err)
	}
}

// Start launches the trigger loop. It stops, releasing the worker pool, when
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.pool.Release()

	for {
		interval := syncstate.DefaultAutoSyncInterval
		meta, err := s.metadata.Get(ctx)
		if err != nil {
			s.logger.Error("Failed to read sync metadata for scheduling", "error", err)
			meta = nil
		} else {
			interval = meta.AutoSyncInterval()
		}
		if s.cadence > 0 {
			interval = s.cadence
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.online:
			timer.Stop()
			s.logger.Info("Connectivity regained, draining sync queue")
			s.Kick()
		case <-timer.C:
			if meta != nil && meta.AutoSync {
				s.autoSync()
			}
		}
	}
}

func (s *Scheduler) autoSync() {
	err := s.pool.Submit(func() {
		err := s.coord.SyncNow(context.Background())
		switch {
		case err == nil:
		case errors.Is(err, ErrSyncBusy), errors.Is(err, ErrNotAuthenticated):
			s.logger.Debug("Auto-sync skipped", "reason", err)
		default:
			s.logger.Warn("Auto-sync pass failed", "error", err)
		}
	})
	if err != nil {
		s.logger.Debug("Auto-sync trigger dropped", "error", err)
	}
}
