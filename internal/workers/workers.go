// SPDX-License-Identifier: Apache-2.0

package workers

import (
	"context"

	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/internal/service"
)

// Workers aggregates the client's background workers.
type Workers struct {
	workers []Worker
}

// NewWorkers wires the sync drain and cache sweep workers over the
// services and the connectivity monitor.
func NewWorkers(services *service.ClientServices, events ConnectivityEvents, cfg *config.Config, log *logger.Logger) *Workers {
	return &Workers{
		workers: []Worker{
			NewSyncWorker(services.Sync, events, cfg.Sync.DrainInterval, log),
			NewCacheWorker(services.Cache, cfg.Cache.SweepInterval, log),
		},
	}
}

// Start launches every worker.
func (w *Workers) Start(ctx context.Context) {
	for _, worker := range w.workers {
		worker.Start(ctx)
	}
}

// Stop halts every worker in reverse start order.
func (w *Workers) Stop() {
	for i := len(w.workers) - 1; i >= 0; i-- {
		w.workers[i].Stop()
	}
}
