// SPDX-License-Identifier: Apache-2.0

package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/internal/service"
)

// SyncWorker drains the sync queue on a fixed cadence and immediately after
// every offline-to-online transition.
type SyncWorker struct {
	syncer   Syncer
	events   ConnectivityEvents
	interval time.Duration
	logger   *logger.Logger

	kick   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncWorker builds the drain worker.
func NewSyncWorker(syncer Syncer, events ConnectivityEvents, interval time.Duration, log *logger.Logger) *SyncWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &SyncWorker{
		syncer:   syncer,
		events:   events,
		interval: interval,
		logger:   log,
		kick:     make(chan struct{}, 1),
	}
}

// Start subscribes to connectivity transitions and launches the drain loop.
func (w *SyncWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.events.Subscribe(func(online bool) {
		if !online {
			return
		}
		select {
		case w.kick <- struct{}{}:
		default:
		}
	})

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
				w.drain(ctx)
			case <-w.kick:
				w.drain(ctx)
			}
		}
	}()

	w.logger.Info().Str("func", "Start").Msg("sync worker started")
}

// Stop halts the drain loop and waits for it to exit.
func (w *SyncWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info().Str("func", "Stop").Msg("sync worker stopped")
}

func (w *SyncWorker) drain(ctx context.Context) {
	err := w.syncer.SyncNow(ctx)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrOffline), errors.Is(err, service.ErrSyncInProgress):
		w.logger.Debug().Str("func", "drain").Err(err).Msg("drain skipped")
	default:
		w.logger.Warn().Str("func", "drain").Err(err).Msg("drain incomplete")
	}
}
