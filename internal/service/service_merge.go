// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"

	"github.com/sitewire/fieldsync/internal/adapter"
	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/internal/store"
	"github.com/sitewire/fieldsync/models"
)

// MergeService produces the read-visible record set for a collection scope:
// the last-known server snapshot overlaid with local unsynced and
// locally-newer records.
type MergeService struct {
	records store.RecordRepository
	backend adapter.BackendAdapter
	cache   *CacheService
	network NetworkStatus
	logger  *logger.Logger
}

// NewMergeService builds the merge view over the local store, the backend
// and the read cache.
func NewMergeService(
	records store.RecordRepository,
	backend adapter.BackendAdapter,
	cache *CacheService,
	network NetworkStatus,
	log *logger.Logger,
) *MergeService {
	return &MergeService{
		records: records,
		backend: backend,
		cache:   cache,
		network: network,
		logger:  log,
	}
}

// Records returns the merged view of one collection scope. scopeField names
// an indexed field used both as the backend filter and the local index
// lookup; an empty scopeField means the whole collection.
//
// Offline, the view is the local data alone and no network I/O happens.
// Online, the server snapshot is fetched (falling back to the cached
// snapshot when the fetch fails) and every local record wins its slot when
// it is unsynced or locally newer; local-only records are unioned in.
func (m *MergeService) Records(ctx context.Context, collection, scopeField string, scopeValue any) ([]models.Record, error) {
	local, err := m.localRecords(ctx, collection, scopeField, scopeValue)
	if err != nil {
		return nil, err
	}

	if !m.network.Online() {
		return local, nil
	}

	server, err := m.serverSnapshot(ctx, collection, scopeField, scopeValue)
	if err != nil {
		m.logger.Warn().Str("func", "Records").Err(err).
			Str("collection", collection).
			Msg("server snapshot unavailable, serving local view")
		return local, nil
	}

	return overlay(server, local), nil
}

func (m *MergeService) localRecords(ctx context.Context, collection, scopeField string, scopeValue any) ([]models.Record, error) {
	if scopeField == "" {
		rows, err := m.records.GetAll(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("local scan of %s: %w", collection, err)
		}
		return rows, nil
	}

	rows, err := m.records.GetByIndex(ctx, collection, scopeField, scopeValue)
	if err != nil {
		return nil, fmt.Errorf("local index lookup %s.%s: %w", collection, scopeField, err)
	}
	return rows, nil
}

// serverSnapshot fetches the scope from the backend, caching the result;
// on fetch failure the last cached snapshot is served instead.
func (m *MergeService) serverSnapshot(ctx context.Context, collection, scopeField string, scopeValue any) ([]models.Record, error) {
	key := snapshotCacheKey(collection, scopeField, scopeValue)

	filter := adapter.Filter{}
	if scopeField != "" {
		filter.Eq = map[string]any{scopeField: scopeValue}
	}

	rows, err := m.backend.Select(ctx, collection, filter)
	if err != nil {
		var cached []models.Record
		if cacheErr := m.cache.GetCachedData(ctx, key, &cached); cacheErr == nil {
			m.logger.Debug().Str("func", "serverSnapshot").
				Str("key", key).Msg("serving cached snapshot")
			return cached, nil
		}
		return nil, fmt.Errorf("fetch %s snapshot: %w", collection, err)
	}

	if cacheErr := m.cache.CacheData(ctx, key, rows, 0); cacheErr != nil {
		m.logger.Warn().Str("func", "serverSnapshot").Err(cacheErr).
			Str("key", key).Msg("snapshot not cached")
	}
	return rows, nil
}

func snapshotCacheKey(collection, scopeField string, scopeValue any) string {
	if scopeField == "" {
		return "snapshot:" + collection
	}
	return fmt.Sprintf("snapshot:%s:%s=%v", collection, scopeField, scopeValue)
}

// overlay applies the local records on top of the server snapshot. A local
// record replaces its server counterpart when it is unsynced (undelivered
// intent) or when its local edit is newer than the server row; local-only
// records are appended.
func overlay(server, local []models.Record) []models.Record {
	out := make([]models.Record, len(server))
	slot := make(map[string]int, len(server))
	for i, row := range server {
		out[i] = row
		slot[row.ID()] = i
	}

	for _, loc := range local {
		pos, known := slot[loc.ID()]
		if !known {
			slot[loc.ID()] = len(out)
			out = append(out, loc)
			continue
		}
		if !loc.Synced() {
			out[pos] = loc
			continue
		}
		if localNewer(loc, out[pos]) {
			out[pos] = loc
		}
	}

	return out
}

func localNewer(local, server models.Record) bool {
	localMs, ok := local.LocalUpdatedAt()
	if !ok {
		return false
	}
	serverTime, ok := parseServerTimestamp(server[models.FieldUpdatedAt])
	if !ok {
		return true
	}
	return localMs > serverTime.UnixMilli()
}
