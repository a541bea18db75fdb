// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/internal/mock"
	"github.com/sitewire/fieldsync/internal/store"
	"github.com/sitewire/fieldsync/models"
)

func newTestCacheService(t *testing.T) (*CacheService, *mock.MockCacheRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mock.NewMockCacheRepository(ctrl)
	svc := NewCacheService(repo, config.Cache{DefaultTTL: time.Hour}, logger.Nop())
	return svc, repo
}

func TestCacheService_CacheDataUsesDefaultTTL(t *testing.T) {
	svc, repo := newTestCacheService(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	repo.EXPECT().Put(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry models.CacheEntry) error {
			assert.Equal(t, "projects:p-1", entry.Key)
			assert.JSONEq(t, `{"total":100}`, string(entry.Data))
			assert.Equal(t, now, entry.Timestamp)
			assert.Equal(t, now.Add(time.Hour), entry.ExpiresAt)
			return nil
		})

	err := svc.CacheData(context.Background(), "projects:p-1", map[string]any{"total": 100}, 0)
	require.NoError(t, err)
}

func TestCacheService_CacheDataTTLOverride(t *testing.T) {
	svc, repo := newTestCacheService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }

	repo.EXPECT().Put(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry models.CacheEntry) error {
			assert.Equal(t, now.Add(5*time.Minute), entry.ExpiresAt)
			return nil
		})

	require.NoError(t, svc.CacheData(context.Background(), "k", "v", 5*time.Minute))
}

func TestCacheService_GetCachedData(t *testing.T) {
	svc, repo := newTestCacheService(t)

	repo.EXPECT().Get(gomock.Any(), "projects:p-1").Return(models.CacheEntry{
		Key:  "projects:p-1",
		Data: []byte(`{"total":100}`),
	}, nil)

	var got map[string]any
	require.NoError(t, svc.GetCachedData(context.Background(), "projects:p-1", &got))
	assert.Equal(t, float64(100), got["total"])
}

func TestCacheService_GetCachedDataMissing(t *testing.T) {
	svc, repo := newTestCacheService(t)

	repo.EXPECT().Get(gomock.Any(), "absent").Return(models.CacheEntry{}, store.ErrNotFound)

	var got any
	err := svc.GetCachedData(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCacheService_ClearExpired(t *testing.T) {
	svc, repo := newTestCacheService(t)
	now := time.Now()
	svc.now = func() time.Time { return now }

	repo.EXPECT().DeleteExpired(gomock.Any(), now).Return(int64(3), nil)

	n, err := svc.ClearExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
