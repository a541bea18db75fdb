// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/internal/utils"
	"github.com/sitewire/fieldsync/models"
)

type recordRepository struct {
	db     *DB
	quota  *QuotaAdvisor
	ids    *utils.UUIDGenerator
	logger *logger.Logger
	now    func() time.Time
}

func NewRecordRepository(db *DB, quota *QuotaAdvisor, log *logger.Logger) RecordRepository {
	return &recordRepository{
		db:     db,
		quota:  quota,
		ids:    utils.NewUUIDGenerator(),
		logger: log,
		now:    time.Now,
	}
}

func (r *recordRepository) Get(ctx context.Context, collection, id string) (models.Record, error) {
	if _, ok := models.CollectionByName(collection); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	conn, err := r.db.Handle(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := selectRecordQuery(collection, id)
	if err != nil {
		return nil, fmt.Errorf("build select record query: %w", err)
	}

	var payload string
	if err = conn.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return nil, fmt.Errorf("failed to query record (collection=%s, id=%s): %w", collection, id, err)
	}

	return decodeRecord(payload)
}

func (r *recordRepository) GetAll(ctx context.Context, collection string) ([]models.Record, error) {
	if _, ok := models.CollectionByName(collection); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	query, args, err := selectAllRecordsQuery(collection)
	if err != nil {
		return nil, fmt.Errorf("build select all query: %w", err)
	}

	return r.queryRecords(ctx, query, args)
}

func (r *recordRepository) GetByIndex(ctx context.Context, collection, indexName string, value any) ([]models.Record, error) {
	col, ok := models.CollectionByName(collection)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if !col.HasIndex(indexName) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownIndex, collection, indexName)
	}

	indexValue, ok := formatIndexValue(value)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported value type for %s.%s", ErrUnknownIndex, collection, indexName)
	}

	query, args, err := selectByIndexQuery(collection, indexName, indexValue)
	if err != nil {
		return nil, fmt.Errorf("build select by index query: %w", err)
	}

	return r.queryRecords(ctx, query, args)
}

// Put writes the record and (optionally) its queue entry in one transaction.
// Create vs update is decided by prior existence of the id; the stamped copy
// is returned and the caller's record is left untouched.
func (r *recordRepository) Put(ctx context.Context, collection string, record models.Record, enqueueSync bool) (models.Record, error) {
	log := logger.FromContext(ctx)

	col, ok := models.CollectionByName(collection)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if record.ID() == "" {
		return nil, ErrMissingRecordID
	}
	if err := r.quota.GuardWrite(); err != nil {
		return nil, err
	}

	conn, err := r.db.Handle(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin put transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := r.recordExists(ctx, tx, collection, record.ID())
	if err != nil {
		return nil, err
	}

	now := r.now()
	stamped := record.Clone()
	stamped.StampLocalWrite(now.UnixMilli())

	if err = r.writeRecordTx(ctx, tx, col, stamped, false, now.UnixMilli(), nil); err != nil {
		return nil, err
	}

	if enqueueSync {
		action := models.ActionCreate
		if exists {
			action = models.ActionUpdate
		}
		entry := models.SyncEntry{
			ID:         r.ids.Generate(),
			Collection: collection,
			RecordID:   stamped.ID(),
			Action:     action,
			Data:       stamped,
			Timestamp:  now,
		}
		if err = insertQueueEntry(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		log.Err(err).
			Str("func", "recordRepository.Put").
			Str("collection", collection).
			Str("id", record.ID()).
			Msg("failed to commit record write")
		return nil, fmt.Errorf("commit put transaction: %w", err)
	}

	return stamped, nil
}

// Delete removes the record and its index rows; when enqueueSync is true the
// pre-delete snapshot is captured into the queue entry so the backend call
// (and any audit trail) can see what was deleted.
func (r *recordRepository) Delete(ctx context.Context, collection, id string, enqueueSync bool) error {
	log := logger.FromContext(ctx)

	if _, ok := models.CollectionByName(collection); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if err := r.quota.GuardWrite(); err != nil {
		return err
	}

	conn, err := r.db.Handle(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := selectRecordQuery(collection, id)
	if err != nil {
		return fmt.Errorf("build select record query: %w", err)
	}

	var payload string
	if err = tx.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return fmt.Errorf("failed to load record before delete (collection=%s, id=%s): %w", collection, id, err)
	}

	snapshot, err := decodeRecord(payload)
	if err != nil {
		return err
	}

	delQuery, delArgs, err := deleteRecordQuery(collection, id)
	if err != nil {
		return fmt.Errorf("build delete record query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		return fmt.Errorf("delete record row: %w", err)
	}

	idxQuery, idxArgs, err := deleteIndexRowsQuery(collection, id)
	if err != nil {
		return fmt.Errorf("build delete index query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, idxQuery, idxArgs...); err != nil {
		return fmt.Errorf("delete record index rows: %w", err)
	}

	if enqueueSync {
		now := r.now()
		entry := models.SyncEntry{
			ID:         r.ids.Generate(),
			Collection: collection,
			RecordID:   id,
			Action:     models.ActionDelete,
			Data:       snapshot,
			Timestamp:  now,
		}
		if err = insertQueueEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		log.Err(err).
			Str("func", "recordRepository.Delete").
			Str("collection", collection).
			Str("id", id).
			Msg("failed to commit record delete")
		return fmt.Errorf("commit delete transaction: %w", err)
	}

	return nil
}

func (r *recordRepository) Clear(ctx context.Context, collection string) error {
	if _, ok := models.CollectionByName(collection); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	conn, err := r.db.Handle(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear transaction: %w", err)
	}
	defer tx.Rollback()

	recQuery, recArgs, err := clearRecordsQuery(collection)
	if err != nil {
		return fmt.Errorf("build clear records query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, recQuery, recArgs...); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	idxQuery, idxArgs, err := clearIndexRowsQuery(collection)
	if err != nil {
		return fmt.Errorf("build clear index query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, idxQuery, idxArgs...); err != nil {
		return fmt.Errorf("clear record index rows: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit clear transaction: %w", err)
	}
	return nil
}

// MarkSynced re-stamps a delivered record. The document and the query
// columns are updated together so readers never see them disagree.
func (r *recordRepository) MarkSynced(ctx context.Context, collection, id string, syncedAt time.Time) error {
	col, ok := models.CollectionByName(collection)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	conn, err := r.db.Handle(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark-synced transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := selectRecordQuery(collection, id)
	if err != nil {
		return fmt.Errorf("build select record query: %w", err)
	}

	var payload string
	if err = tx.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return fmt.Errorf("failed to load record for mark-synced: %w", err)
	}

	record, err := decodeRecord(payload)
	if err != nil {
		return err
	}
	record.StampSynced(syncedAt.UnixMilli())

	localUpdatedAt := any(nil)
	if ms, ok := record.LocalUpdatedAt(); ok {
		localUpdatedAt = ms
	}
	if err = r.writeRecordTx(ctx, tx, col, record, true, localUpdatedAt, syncedAt.UnixMilli()); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit mark-synced transaction: %w", err)
	}
	return nil
}

// SaveServerRecord adopts a server snapshot as local truth: stored synced,
// no localUpdatedAt, never enqueued.
func (r *recordRepository) SaveServerRecord(ctx context.Context, collection string, record models.Record) error {
	col, ok := models.CollectionByName(collection)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if record.ID() == "" {
		return ErrMissingRecordID
	}

	conn, err := r.db.Handle(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save-server transaction: %w", err)
	}
	defer tx.Rollback()

	clean := record.Clone()
	clean.ClearLocalState()

	if err = r.writeRecordTx(ctx, tx, col, clean, true, nil, nil); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save-server transaction: %w", err)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *recordRepository) recordExists(ctx context.Context, tx *sql.Tx, collection, id string) (bool, error) {
	query, args, err := recordExistsQuery(collection, id)
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check record existence: %w", err)
	}
	return true, nil
}

func (r *recordRepository) writeRecordTx(ctx context.Context, tx *sql.Tx, col models.Collection, record models.Record, synced bool, localUpdatedAt, syncedAt any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	query, args, err := upsertRecordQuery(col.Name, record.ID(), string(payload), synced, localUpdatedAt, syncedAt)
	if err != nil {
		return fmt.Errorf("build upsert query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert record (collection=%s, id=%s): %w", col.Name, record.ID(), err)
	}

	idxQuery, idxArgs, err := deleteIndexRowsQuery(col.Name, record.ID())
	if err != nil {
		return fmt.Errorf("build index refresh query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, idxQuery, idxArgs...); err != nil {
		return fmt.Errorf("refresh index rows: %w", err)
	}

	for _, indexName := range col.Indexes {
		value, ok := formatIndexValue(record[indexName])
		if !ok {
			continue
		}
		insQuery, insArgs, err := insertIndexRowQuery(col.Name, indexName, value, record.ID())
		if err != nil {
			return fmt.Errorf("build index row query: %w", err)
		}
		if _, err = tx.ExecContext(ctx, insQuery, insArgs...); err != nil {
			return fmt.Errorf("write index row %s.%s: %w", col.Name, indexName, err)
		}
	}

	return nil
}

func insertQueueEntry(ctx context.Context, tx *sql.Tx, entry models.SyncEntry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("encode queue entry snapshot: %w", err)
	}

	query, args, err := insertQueueEntryQuery(entry, string(data))
	if err != nil {
		return fmt.Errorf("build queue insert query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to enqueue sync entry (collection=%s, id=%s): %w", entry.Collection, entry.RecordID, err)
	}
	return nil
}

func (r *recordRepository) queryRecords(ctx context.Context, query string, args []any) ([]models.Record, error) {
	log := logger.FromContext(ctx)

	conn, err := r.db.Handle(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.queryRecords").
			Msg("failed to execute record query")
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var payload string
		if err = rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		record, err := decodeRecord(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", rowsErr)
	}

	return records, nil
}

func decodeRecord(payload string) (models.Record, error) {
	var record models.Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("decode record payload: %w", err)
	}
	return record, nil
}

// formatIndexValue normalizes an indexable field value to its textual form.
// Only scalar values are indexable; composite values report false and the
// index row is skipped.
func formatIndexValue(v any) (string, bool) {
	switch value := v.(type) {
	case string:
		return value, value != ""
	case bool:
		return strconv.FormatBool(value), true
	case int:
		return strconv.Itoa(value), true
	case int64:
		return strconv.FormatInt(value, 10), true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case json.Number:
		return value.String(), true
	default:
		return "", false
	}
}
