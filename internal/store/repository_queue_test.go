// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/models"
)

func newMockQueueRepo(t *testing.T) (SyncQueueRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewSyncQueueRepository(db, logger.Nop()), mock
}

func TestSyncQueueRepository_Enqueue(t *testing.T) {
	repo, mock := newMockQueueRepo(t)

	entry := models.SyncEntry{
		ID:         "q-1",
		Collection: "projects",
		RecordID:   "p-1",
		Action:     models.ActionCreate,
		Data:       models.Record{"id": "p-1"},
		Timestamp:  fixedNow,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_queue")).
		WithArgs("q-1", "projects", "p-1", "create", `{"id":"p-1"}`, fixedNow.UnixMilli(), 0, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Enqueue(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncQueueRepository_ListOrdersOldestFirst(t *testing.T) {
	repo, mock := newMockQueueRepo(t)

	query, _, err := listQueueQuery()
	require.NoError(t, err)
	assert.Contains(t, query, "ORDER BY ts ASC, id ASC")

	t1 := fixedNow.Add(-time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "collection", "record_id", "action", "data", "ts", "retry_count", "last_error"}).
			AddRow("q-1", "projects", "p-1", "create", `{"id":"p-1"}`, t1.UnixMilli(), 0, "").
			AddRow("q-2", "projects", "p-1", "update", `{"id":"p-1","name":"v2"}`, fixedNow.UnixMilli(), 2, "timeout"))

	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "q-1", entries[0].ID)
	assert.Equal(t, models.ActionCreate, entries[0].Action)
	assert.Equal(t, t1.UnixMilli(), entries[0].Timestamp.UnixMilli())

	assert.Equal(t, models.ActionUpdate, entries[1].Action)
	assert.Equal(t, "v2", entries[1].Data["name"])
	assert.Equal(t, 2, entries[1].RetryCount)
	assert.Equal(t, "timeout", entries[1].LastError)
}

func TestSyncQueueRepository_Remove(t *testing.T) {
	repo, mock := newMockQueueRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sync_queue")).
		WithArgs("q-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Remove(context.Background(), "q-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncQueueRepository_RemoveForRecord(t *testing.T) {
	repo, mock := newMockQueueRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sync_queue")).
		WithArgs("markups", "m-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RemoveForRecord(context.Background(), "markups", "m-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncQueueRepository_Update(t *testing.T) {
	repo, mock := newMockQueueRepo(t)

	entry := models.SyncEntry{ID: "q-1", RetryCount: 2, LastError: "backend unavailable"}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sync_queue")).
		WithArgs(2, "backend unavailable", "q-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), entry))
}

func TestSyncQueueRepository_UpdateMissingEntry(t *testing.T) {
	repo, mock := newMockQueueRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sync_queue")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), models.SyncEntry{ID: "gone"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncQueueRepository_CountPending(t *testing.T) {
	repo, mock := newMockQueueRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sync_queue")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
