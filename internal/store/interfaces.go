// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"time"

	"github.com/sitewire/fieldsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// RecordRepository is the local record store for all declared collections.
// Put and Delete are atomic with their sync queue entry: both land or
// neither does.
type RecordRepository interface {
	Get(ctx context.Context, collection, id string) (models.Record, error)
	GetAll(ctx context.Context, collection string) ([]models.Record, error)
	GetByIndex(ctx context.Context, collection, indexName string, value any) ([]models.Record, error)
	// Put stamps the sync metadata overlay, writes the record and, when
	// enqueueSync is true, appends a queue entry in the same transaction.
	// The stamped record is returned.
	Put(ctx context.Context, collection string, record models.Record, enqueueSync bool) (models.Record, error)
	// Delete removes the record, capturing the pre-delete snapshot for
	// the queue entry when enqueueSync is true.
	Delete(ctx context.Context, collection, id string, enqueueSync bool) error
	Clear(ctx context.Context, collection string) error
	// MarkSynced re-stamps a delivered record (synced=true, syncedAt).
	MarkSynced(ctx context.Context, collection, id string, syncedAt time.Time) error
	// SaveServerRecord stores a server-origin record as already synced,
	// without enqueueing and without local metadata.
	SaveServerRecord(ctx context.Context, collection string, record models.Record) error
}

// SyncQueueRepository is the durable log of pending outbound mutations.
type SyncQueueRepository interface {
	Enqueue(ctx context.Context, entry models.SyncEntry) error
	// List returns all pending entries ordered oldest first.
	List(ctx context.Context) ([]models.SyncEntry, error)
	Remove(ctx context.Context, entryID string) error
	// RemoveForRecord drops every pending entry of one record; used when
	// a conflict resolution supersedes queued snapshots.
	RemoveForRecord(ctx context.Context, collection, recordID string) error
	// Update persists retryCount / lastError mutations.
	Update(ctx context.Context, entry models.SyncEntry) error
	CountPending(ctx context.Context) (int, error)
}

// CacheRepository is the key/value TTL cache backing memoized remote reads.
type CacheRepository interface {
	Put(ctx context.Context, entry models.CacheEntry) error
	// Get returns ErrNotFound for a missing key. Expired entries are
	// deleted on read and reported as missing.
	Get(ctx context.Context, key string) (models.CacheEntry, error)
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Clear(ctx context.Context) error
}
