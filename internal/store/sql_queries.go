// SPDX-License-Identifier: Apache-2.0

package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sitewire/fieldsync/models"
)

// qb builds every store query with "?" placeholders (SQLite).
var qb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// ── records ──────────────────────────────────────────────────────────────────

func selectRecordQuery(collection, id string) (string, []any, error) {
	return qb.Select("data").
		From("records").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
}

func selectAllRecordsQuery(collection string) (string, []any, error) {
	return qb.Select("data").
		From("records").
		Where(sq.Eq{"collection": collection}).
		ToSql()
}

func selectByIndexQuery(collection, indexName, value string) (string, []any, error) {
	return qb.Select("r.data").
		From("records AS r").
		Join("record_index AS i ON i.collection = r.collection AND i.record_id = r.id").
		Where(sq.Eq{
			"i.collection": collection,
			"i.index_name": indexName,
			"i.value":      value,
		}).
		ToSql()
}

func recordExistsQuery(collection, id string) (string, []any, error) {
	return qb.Select("1").
		From("records").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
}

func upsertRecordQuery(collection, id, data string, synced bool, localUpdatedAt, syncedAt any) (string, []any, error) {
	return qb.Insert("records").
		Columns("collection", "id", "data", "synced", "local_updated_at", "synced_at").
		Values(collection, id, data, synced, localUpdatedAt, syncedAt).
		Suffix(`ON CONFLICT(collection, id) DO UPDATE SET
			data = excluded.data,
			synced = excluded.synced,
			local_updated_at = excluded.local_updated_at,
			synced_at = excluded.synced_at`).
		ToSql()
}

func deleteRecordQuery(collection, id string) (string, []any, error) {
	return qb.Delete("records").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
}

func clearRecordsQuery(collection string) (string, []any, error) {
	return qb.Delete("records").
		Where(sq.Eq{"collection": collection}).
		ToSql()
}

// ── secondary index rows ─────────────────────────────────────────────────────

func deleteIndexRowsQuery(collection, recordID string) (string, []any, error) {
	return qb.Delete("record_index").
		Where(sq.Eq{"collection": collection, "record_id": recordID}).
		ToSql()
}

func insertIndexRowQuery(collection, indexName, value, recordID string) (string, []any, error) {
	return qb.Insert("record_index").
		Columns("collection", "index_name", "value", "record_id").
		Values(collection, indexName, value, recordID).
		Suffix(`ON CONFLICT(collection, index_name, record_id) DO UPDATE SET
			value = excluded.value`).
		ToSql()
}

func clearIndexRowsQuery(collection string) (string, []any, error) {
	return qb.Delete("record_index").
		Where(sq.Eq{"collection": collection}).
		ToSql()
}

// ── sync queue ───────────────────────────────────────────────────────────────

func insertQueueEntryQuery(entry models.SyncEntry, data string) (string, []any, error) {
	return qb.Insert("sync_queue").
		Columns("id", "collection", "record_id", "action", "data", "ts", "retry_count", "last_error").
		Values(entry.ID, entry.Collection, entry.RecordID, string(entry.Action), data,
			entry.Timestamp.UnixMilli(), entry.RetryCount, entry.LastError).
		ToSql()
}

func listQueueQuery() (string, []any, error) {
	return qb.Select("id", "collection", "record_id", "action", "data", "ts", "retry_count", "last_error").
		From("sync_queue").
		OrderBy("ts ASC", "id ASC").
		ToSql()
}

func removeQueueEntryQuery(entryID string) (string, []any, error) {
	return qb.Delete("sync_queue").
		Where(sq.Eq{"id": entryID}).
		ToSql()
}

func removeQueueForRecordQuery(collection, recordID string) (string, []any, error) {
	return qb.Delete("sync_queue").
		Where(sq.Eq{"collection": collection, "record_id": recordID}).
		ToSql()
}

func updateQueueEntryQuery(entry models.SyncEntry) (string, []any, error) {
	return qb.Update("sync_queue").
		Set("retry_count", entry.RetryCount).
		Set("last_error", entry.LastError).
		Where(sq.Eq{"id": entry.ID}).
		ToSql()
}

func countQueueQuery() (string, []any, error) {
	return qb.Select("COUNT(*)").
		From("sync_queue").
		ToSql()
}

// ── cache ────────────────────────────────────────────────────────────────────

func upsertCacheQuery(entry models.CacheEntry) (string, []any, error) {
	return qb.Insert("cache").
		Columns("key", "data", "created_at", "expires_at").
		Values(entry.Key, string(entry.Data), entry.Timestamp.UnixMilli(), entry.ExpiresAt.UnixMilli()).
		Suffix(`ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`).
		ToSql()
}

func selectCacheQuery(key string) (string, []any, error) {
	return qb.Select("key", "data", "created_at", "expires_at").
		From("cache").
		Where(sq.Eq{"key": key}).
		ToSql()
}

func deleteCacheQuery(key string) (string, []any, error) {
	return qb.Delete("cache").
		Where(sq.Eq{"key": key}).
		ToSql()
}

func deleteExpiredCacheQuery(now time.Time) (string, []any, error) {
	return qb.Delete("cache").
		Where(sq.Lt{"expires_at": now.UnixMilli()}).
		ToSql()
}

func clearCacheQuery() (string, []any, error) {
	return qb.Delete("cache").ToSql()
}
