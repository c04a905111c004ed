// Package scheduler runs the periodic background sweeps (§4.L): lazy
// expiry is reinforced by a small-sample active sweep, and blocked clients
// past their deadline are woken with a timeout reply.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/vredis/internal/blocking"
	"github.com/edirooss/vredis/internal/store"
)

// Ticker drives both sweeps off a single interval, mirroring the teacher's
// preference for one dedicated goroutine per background concern rather than
// a generic job runner.
type Ticker struct {
	store      *store.Store
	blockingMgr *blocking.Manager
	interval   time.Duration
	sampleSize int
	log        *zap.Logger
}

func NewTicker(st *store.Store, bm *blocking.Manager, interval time.Duration, sampleSize int, log *zap.Logger) *Ticker {
	return &Ticker{store: st, blockingMgr: bm, interval: interval, sampleSize: sampleSize, log: log}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			reaped := t.store.SweepExpired(t.sampleSize)
			if len(reaped) > 0 {
				t.log.Debug("swept expired keys", zap.Int("count", len(reaped)))
			}
			t.blockingMgr.SweepTimeouts(now)
		}
	}
}
