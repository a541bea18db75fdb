// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
)

// NewConnectSQLite creates (if needed) and opens the local SQLite database
// file and wraps it in a resilient [DB] handle.
func NewConnectSQLite(ctx context.Context, cfg config.Storage, log *logger.Logger) (*DB, error) {
	if err := createLocalDBFileIfNotExists(cfg.DBPath); err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error creating database file")
		return nil, fmt.Errorf("error creating database file: %w", err)
	}

	conn, err := openSQLite(ctx, cfg.DBPath, log)
	if err != nil {
		return nil, err
	}

	return &DB{path: cfg.DBPath, logger: log, conn: conn}, nil
}

func openSQLite(ctx context.Context, path string, log *logger.Logger) (*sql.DB, error) {
	// _busy_timeout keeps concurrent local writers from failing fast on
	// SQLITE_BUSY; foreign keys are off because collections are schemaless.
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		log.Err(err).Str("func", "openSQLite").Msg("error connecting database")
		return nil, fmt.Errorf("error opening connection to DB: %w", err)
	}

	if err = conn.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "openSQLite").Msg("error connecting database (ping)")
		_ = conn.Close()
		return nil, err
	}
	log.Debug().Str("func", "openSQLite").Msg("connected to database successfully")

	return conn, nil
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		dir := filepath.Dir(dbFile)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("error creating DB directory: %w", err)
			}
		}
		f, err := os.Create(dbFile)
		if err != nil {
			return fmt.Errorf("error creating DB file: %w", err)
		}
		f.Close()
	}
	return nil
}
