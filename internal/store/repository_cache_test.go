// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/models"
)

func newMockCacheRepo(t *testing.T) (*cacheRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	repo := NewCacheRepository(db, logger.Nop()).(*cacheRepository)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func TestCacheRepository_Put(t *testing.T) {
	repo, mock := newMockCacheRepo(t)

	entry := models.CacheEntry{
		Key:       "snapshot:projects",
		Data:      []byte(`[{"id":"p-1"}]`),
		Timestamp: fixedNow,
		ExpiresAt: fixedNow.Add(time.Hour),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cache")).
		WithArgs("snapshot:projects", `[{"id":"p-1"}]`, fixedNow.UnixMilli(), fixedNow.Add(time.Hour).UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Put(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepository_GetLive(t *testing.T) {
	repo, mock := newMockCacheRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, data, created_at, expires_at FROM cache")).
		WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"key", "data", "created_at", "expires_at"}).
			AddRow("k", `{"v":1}`, fixedNow.UnixMilli(), fixedNow.Add(time.Hour).UnixMilli()))

	entry, err := repo.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "k", entry.Key)
	assert.JSONEq(t, `{"v":1}`, string(entry.Data))
}

func TestCacheRepository_GetExpiredDeletesOnRead(t *testing.T) {
	repo, mock := newMockCacheRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, data, created_at, expires_at FROM cache")).
		WithArgs("stale").
		WillReturnRows(sqlmock.NewRows([]string{"key", "data", "created_at", "expires_at"}).
			AddRow("stale", `{}`, fixedNow.Add(-2*time.Hour).UnixMilli(), fixedNow.Add(-time.Hour).UnixMilli()))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cache")).
		WithArgs("stale").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.Get(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepository_GetMissing(t *testing.T) {
	repo, mock := newMockCacheRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, data, created_at, expires_at FROM cache")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCacheRepository_DeleteExpired(t *testing.T) {
	repo, mock := newMockCacheRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cache WHERE expires_at <")).
		WithArgs(fixedNow.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := repo.DeleteExpired(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestCacheRepository_Clear(t *testing.T) {
	repo, mock := newMockCacheRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cache")).
		WillReturnResult(sqlmock.NewResult(0, 9))

	require.NoError(t, repo.Clear(context.Background()))
}
