// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/migrations"
)

// DB wraps the process-wide SQLite handle. The handle is lazy: it is opened
// on first use and re-opened transparently if the underlying connection
// closes out from under us. All repositories share one *DB.
type DB struct {
	path   string
	logger *logger.Logger

	mu   sync.Mutex
	conn *sql.DB
}

// Handle returns a live *sql.DB, opening or re-opening the connection as
// needed. A ping failure invalidates the cached handle; the next caller gets
// a fresh one.
func (db *DB) Handle(ctx context.Context) (*sql.DB, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn != nil {
		if err := db.conn.PingContext(ctx); err == nil {
			return db.conn, nil
		}
		db.logger.Warn().Str("func", "DB.Handle").Msg("stale database handle, reopening")
		_ = db.conn.Close()
		db.conn = nil
	}

	conn, err := openSQLite(ctx, db.path, db.logger)
	if err != nil {
		return nil, fmt.Errorf("reopen local database: %w", err)
	}
	db.conn = conn

	return db.conn, nil
}

// Migrate applies pending schema migrations through the shared handle.
func (db *DB) Migrate(ctx context.Context) error {
	conn, err := db.Handle(ctx)
	if err != nil {
		return err
	}
	return migrations.Migrate(conn)
}

// Close releases the underlying connection. Safe to call when already
// closed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn == nil {
		return nil
	}
	err := db.conn.Close()
	db.conn = nil
	return err
}
