// SPDX-License-Identifier: Apache-2.0

// Package service implements the offline-first client logic: the sync
// engine draining the durable queue, conflict detection and resolution,
// the merged read view and the TTL read cache.
package service

import (
	"github.com/sitewire/fieldsync/internal/adapter"
	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/internal/store"
)

// ClientServices groups every client-side service behind one value.
type ClientServices struct {
	Sync  *SyncEngine
	Merge *MergeService
	Cache *CacheService
}

// NewClientServices wires the services over the shared storages, backend
// adapter and connectivity monitor.
func NewClientServices(
	storages *store.Storages,
	backend adapter.BackendAdapter,
	files adapter.FileStorage,
	network NetworkStatus,
	cfg *config.Config,
	log *logger.Logger,
) *ClientServices {
	log.Info().Msg("creating new services...")

	cache := NewCacheService(storages.Cache, cfg.Cache, log)

	return &ClientServices{
		Sync:  NewSyncEngine(storages, backend, files, network, cfg, log),
		Merge: NewMergeService(storages.Records, backend, cache, network, log),
		Cache: cache,
	}
}
