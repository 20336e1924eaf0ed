package chatible

import (
	"context"
	"sync"
	"time"

	"github.com/oggyb/chatible/internal/logger"
)

// SweepOnce evicts every waiting entry older than MaxWait at now and tells
// the evicted users. It returns how many entries were removed.
//
// Each eviction stands alone: a failure is logged and the sweep moves on.
// Entries that left the pool, or re-entered it, after the snapshot are
// skipped by the store.
func (s *Service) SweepOnce(ctx context.Context, now time.Time) int {
	pool, err := s.store.ListWaiting(ctx)
	if err != nil {
		s.storeErr("list_waiting", err)
		return 0
	}

	cutoff := now.Add(-s.policy.MaxWait)
	evicted := 0
	for _, entry := range pool {
		if !entry.EnqueuedAt.Before(cutoff) {
			continue
		}
		removed, err := s.store.EvictWaiting(ctx, entry.UserID, cutoff)
		if err != nil {
			s.storeErr("evict_waiting", err, "user", entry.UserID)
			continue
		}
		if !removed {
			continue
		}
		evicted++
		s.buttons(ctx, entry.UserID, s.msg.EndChatForce, s.idleMenu())
		s.log.Info("waiting.evicted", "user", entry.UserID, "waited", now.Sub(entry.EnqueuedAt).Round(time.Second))
	}
	return evicted
}

// Sweep runs SweepOnce at the current time.
func (s *Service) Sweep(ctx context.Context) int {
	return s.SweepOnce(ctx, s.now())
}

// Sweeper runs SweepOnce on a fixed interval. Every tick starts its own
// sweep, so a slow sweep never delays the next one.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	wg       sync.WaitGroup
}

func NewSweeper(svc *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{svc: svc, interval: interval}
}

// Run blocks until ctx is done, then waits for in-flight sweeps.
// Sweeps already started are not cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	sweepCtx := context.WithoutCancel(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				start := time.Now()
				n := w.svc.Sweep(sweepCtx)
				w.svc.log.Debug("sweep done", "evicted", n, "took", logger.Since(start))
			}()
		}
	}
}
