// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
)

// Storages groups all local storage repositories into a single value that
// can be passed around the service layer.
type Storages struct {
	// Records is the collection/record store with the sync metadata
	// overlay and secondary indexes.
	Records RecordRepository
	// Queue is the durable sync queue.
	Queue SyncQueueRepository
	// Cache is the TTL read cache.
	Cache CacheRepository
	// Quota grades local storage capacity.
	Quota *QuotaAdvisor

	db *DB
}

// NewStorages initialises the local storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path specified in
//     cfg.DBPath, creating the database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs and returns a [Storages] value wired to fresh
//     repositories sharing the one resilient handle.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.Storage, log *logger.Logger) (*Storages, error) {
	log.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg, log)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	quota := NewQuotaAdvisor(cfg.DBPath, cfg.QuotaLimitBytes)

	return &Storages{
		Records: NewRecordRepository(db, quota, log),
		Queue:   NewSyncQueueRepository(db, log),
		Cache:   NewCacheRepository(db, log),
		Quota:   quota,
		db:      db,
	}, nil
}

// Close releases the shared database handle.
func (s *Storages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
