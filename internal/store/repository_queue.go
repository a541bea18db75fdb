// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/models"
)

type syncQueueRepository struct {
	db     *DB
	logger *logger.Logger
}

func NewSyncQueueRepository(db *DB, log *logger.Logger) SyncQueueRepository {
	return &syncQueueRepository{db: db, logger: log}
}

func (q *syncQueueRepository) Enqueue(ctx context.Context, entry models.SyncEntry) error {
	conn, err := q.db.Handle(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enqueue transaction: %w", err)
	}
	defer tx.Rollback()

	if err = insertQueueEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enqueue transaction: %w", err)
	}
	return nil
}

func (q *syncQueueRepository) List(ctx context.Context) ([]models.SyncEntry, error) {
	log := logger.FromContext(ctx)

	conn, err := q.db.Handle(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := listQueueQuery()
	if err != nil {
		return nil, fmt.Errorf("build list queue query: %w", err)
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "syncQueueRepository.List").
			Msg("failed to execute queue list query")
		return nil, fmt.Errorf("failed to query sync queue: %w", err)
	}
	defer rows.Close()

	var entries []models.SyncEntry
	for rows.Next() {
		var (
			entry   models.SyncEntry
			action  string
			data    string
			tsMilli int64
		)
		if err = rows.Scan(&entry.ID, &entry.Collection, &entry.RecordID, &action, &data, &tsMilli, &entry.RetryCount, &entry.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan sync queue row: %w", err)
		}

		entry.Action = models.SyncAction(action)
		entry.Timestamp = time.UnixMilli(tsMilli)
		if err = json.Unmarshal([]byte(data), &entry.Data); err != nil {
			return nil, fmt.Errorf("decode queue entry snapshot (id=%s): %w", entry.ID, err)
		}

		entries = append(entries, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("error iterating sync queue rows: %w", rowsErr)
	}

	return entries, nil
}

func (q *syncQueueRepository) Remove(ctx context.Context, entryID string) error {
	conn, err := q.db.Handle(ctx)
	if err != nil {
		return err
	}

	query, args, err := removeQueueEntryQuery(entryID)
	if err != nil {
		return fmt.Errorf("build queue remove query: %w", err)
	}
	if _, err = conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to remove sync queue entry (id=%s): %w", entryID, err)
	}
	return nil
}

func (q *syncQueueRepository) RemoveForRecord(ctx context.Context, collection, recordID string) error {
	conn, err := q.db.Handle(ctx)
	if err != nil {
		return err
	}

	query, args, err := removeQueueForRecordQuery(collection, recordID)
	if err != nil {
		return fmt.Errorf("build queue remove-for-record query: %w", err)
	}
	if _, err = conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to remove sync queue entries (collection=%s, id=%s): %w", collection, recordID, err)
	}
	return nil
}

func (q *syncQueueRepository) Update(ctx context.Context, entry models.SyncEntry) error {
	log := logger.FromContext(ctx)

	conn, err := q.db.Handle(ctx)
	if err != nil {
		return err
	}

	query, args, err := updateQueueEntryQuery(entry)
	if err != nil {
		return fmt.Errorf("build queue update query: %w", err)
	}

	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "syncQueueRepository.Update").
			Str("entry_id", entry.ID).
			Msg("failed to update sync queue entry")
		return fmt.Errorf("failed to update sync queue entry (id=%s): %w", entry.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected (id=%s): %w", entry.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: sync queue entry %s", ErrNotFound, entry.ID)
	}

	return nil
}

func (q *syncQueueRepository) CountPending(ctx context.Context) (int, error) {
	conn, err := q.db.Handle(ctx)
	if err != nil {
		return 0, err
	}

	query, args, err := countQueueQuery()
	if err != nil {
		return 0, fmt.Errorf("build queue count query: %w", err)
	}

	var count int
	if err = conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sync queue entries: %w", err)
	}
	return count, nil
}
