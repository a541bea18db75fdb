// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sitewire/fieldsync/internal/adapter"
	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/internal/mock"
	"github.com/sitewire/fieldsync/internal/store"
	"github.com/sitewire/fieldsync/models"
)

type mergeFixture struct {
	merge   *MergeService
	records *mock.MockRecordRepository
	backend *mock.MockBackendAdapter
	cache   *mock.MockCacheRepository
	network *stubNetwork
}

func newMergeFixture(t *testing.T) *mergeFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &mergeFixture{
		records: mock.NewMockRecordRepository(ctrl),
		backend: mock.NewMockBackendAdapter(ctrl),
		cache:   mock.NewMockCacheRepository(ctrl),
		network: &stubNetwork{online: true},
	}

	cacheSvc := NewCacheService(f.cache, config.Cache{DefaultTTL: time.Hour}, logger.Nop())
	f.merge = NewMergeService(f.records, f.backend, cacheSvc, f.network, logger.Nop())
	return f
}

func TestMergeService_OfflineReturnsLocalOnly(t *testing.T) {
	f := newMergeFixture(t)
	f.network.set(false)

	local := []models.Record{{"id": "m-1", "synced": false, "localUpdatedAt": int64(1)}}
	f.records.EXPECT().GetByIndex(gomock.Any(), "markups", "project_id", "p-1").Return(local, nil)
	// No backend expectations: offline must not touch the network.

	got, err := f.merge.Records(context.Background(), "markups", "project_id", "p-1")
	require.NoError(t, err)
	assert.Equal(t, local, got)
}

func TestMergeService_UnsyncedLocalWinsOverServer(t *testing.T) {
	f := newMergeFixture(t)

	server := []models.Record{
		{"id": "m-1", "title": "Server Title", "updated_at": "2026-03-10T12:00:00Z"},
		{"id": "m-2", "title": "Untouched", "updated_at": "2026-03-10T12:00:00Z"},
	}
	local := []models.Record{
		{"id": "m-1", "title": "Local Title", "synced": false, "localUpdatedAt": int64(1)},
		{"id": "m-3", "title": "Local Only", "synced": false, "localUpdatedAt": int64(2)},
	}

	f.records.EXPECT().GetByIndex(gomock.Any(), "markups", "project_id", "p-1").Return(local, nil)
	f.backend.EXPECT().Select(gomock.Any(), "markups", adapter.Filter{Eq: map[string]any{"project_id": "p-1"}}).Return(server, nil)
	f.cache.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)

	got, err := f.merge.Records(context.Background(), "markups", "project_id", "p-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	byID := make(map[string]models.Record, len(got))
	for _, r := range got {
		byID[r.ID()] = r
	}
	assert.Equal(t, "Local Title", byID["m-1"]["title"])
	assert.Equal(t, "Untouched", byID["m-2"]["title"])
	assert.Equal(t, "Local Only", byID["m-3"]["title"])
}

func TestMergeService_SyncedLocalNewerThanServerWins(t *testing.T) {
	f := newMergeFixture(t)

	serverTime := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	server := []models.Record{{"id": "m-1", "title": "Server", "updated_at": serverTime.Format(time.RFC3339)}}
	local := []models.Record{{
		"id": "m-1", "title": "Local", "synced": true,
		"localUpdatedAt": serverTime.Add(time.Hour).UnixMilli(),
	}}

	f.records.EXPECT().GetByIndex(gomock.Any(), "markups", "project_id", "p-1").Return(local, nil)
	f.backend.EXPECT().Select(gomock.Any(), "markups", gomock.Any()).Return(server, nil)
	f.cache.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)

	got, err := f.merge.Records(context.Background(), "markups", "project_id", "p-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Local", got[0]["title"])
}

func TestMergeService_SyncedOlderLocalLosesToServer(t *testing.T) {
	f := newMergeFixture(t)

	serverTime := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	server := []models.Record{{"id": "m-1", "title": "Server", "updated_at": serverTime.Format(time.RFC3339)}}
	local := []models.Record{{
		"id": "m-1", "title": "Local", "synced": true,
		"localUpdatedAt": serverTime.Add(-time.Hour).UnixMilli(),
	}}

	f.records.EXPECT().GetByIndex(gomock.Any(), "markups", "project_id", "p-1").Return(local, nil)
	f.backend.EXPECT().Select(gomock.Any(), "markups", gomock.Any()).Return(server, nil)
	f.cache.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)

	got, err := f.merge.Records(context.Background(), "markups", "project_id", "p-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Server", got[0]["title"])
}

func TestMergeService_FetchFailureFallsBackToCachedSnapshot(t *testing.T) {
	f := newMergeFixture(t)

	cached := []models.Record{{"id": "m-1", "title": "Cached"}}
	local := []models.Record{{"id": "m-2", "title": "Local Only", "synced": false, "localUpdatedAt": int64(1)}}

	f.records.EXPECT().GetByIndex(gomock.Any(), "markups", "project_id", "p-1").Return(local, nil)
	f.backend.EXPECT().Select(gomock.Any(), "markups", gomock.Any()).Return(nil, adapter.ErrUnavailable)
	f.cache.EXPECT().Get(gomock.Any(), "snapshot:markups:project_id=p-1").Return(models.CacheEntry{
		Data: []byte(`[{"id":"m-1","title":"Cached"}]`),
	}, nil)

	got, err := f.merge.Records(context.Background(), "markups", "project_id", "p-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, cached[0]["title"], got[0]["title"])
	assert.Equal(t, "Local Only", got[1]["title"])
}

func TestMergeService_FetchAndCacheBothFailServesLocal(t *testing.T) {
	f := newMergeFixture(t)

	local := []models.Record{{"id": "m-1", "synced": false, "localUpdatedAt": int64(1)}}

	f.records.EXPECT().GetByIndex(gomock.Any(), "markups", "project_id", "p-1").Return(local, nil)
	f.backend.EXPECT().Select(gomock.Any(), "markups", gomock.Any()).Return(nil, adapter.ErrUnavailable)
	f.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(models.CacheEntry{}, store.ErrNotFound)

	got, err := f.merge.Records(context.Background(), "markups", "project_id", "p-1")
	require.NoError(t, err)
	assert.Equal(t, local, got)
}

func TestMergeService_WholeCollectionScope(t *testing.T) {
	f := newMergeFixture(t)

	server := []models.Record{{"id": "p-1", "name": "Substation refit"}}
	f.records.EXPECT().GetAll(gomock.Any(), "projects").Return(nil, nil)
	f.backend.EXPECT().Select(gomock.Any(), "projects", adapter.Filter{}).Return(server, nil)
	f.cache.EXPECT().Put(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry models.CacheEntry) error {
			assert.Equal(t, "snapshot:projects", entry.Key)
			return nil
		})

	got, err := f.merge.Records(context.Background(), "projects", "", nil)
	require.NoError(t, err)
	assert.Equal(t, server, got)
}
