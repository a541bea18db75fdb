// SPDX-License-Identifier: Apache-2.0

package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sitewire/fieldsync/internal/logger"
)

// CacheWorker periodically sweeps expired entries out of the read cache.
type CacheWorker struct {
	sweeper  CacheSweeper
	interval time.Duration
	logger   *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCacheWorker builds the sweep worker.
func NewCacheWorker(sweeper CacheSweeper, interval time.Duration, log *logger.Logger) *CacheWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &CacheWorker{
		sweeper:  sweeper,
		interval: interval,
		logger:   log,
	}
}

// Start launches the sweep loop.
func (w *CacheWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()

	w.logger.Info().Str("func", "Start").Msg("cache worker started")
}

// Stop halts the sweep loop and waits for it to exit.
func (w *CacheWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info().Str("func", "Stop").Msg("cache worker stopped")
}

func (w *CacheWorker) sweep(ctx context.Context) {
	n, err := w.sweeper.ClearExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn().Str("func", "sweep").Err(err).Msg("cache sweep failed")
		}
		return
	}
	if n > 0 {
		w.logger.Debug().Str("func", "sweep").Int64("removed", n).Msg("cache swept")
	}
}
