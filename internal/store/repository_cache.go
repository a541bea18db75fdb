// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/models"
)

type cacheRepository struct {
	db     *DB
	logger *logger.Logger
	now    func() time.Time
}

func NewCacheRepository(db *DB, log *logger.Logger) CacheRepository {
	return &cacheRepository{db: db, logger: log, now: time.Now}
}

func (c *cacheRepository) Put(ctx context.Context, entry models.CacheEntry) error {
	conn, err := c.db.Handle(ctx)
	if err != nil {
		return err
	}

	query, args, err := upsertCacheQuery(entry)
	if err != nil {
		return fmt.Errorf("build cache upsert query: %w", err)
	}
	if _, err = conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write cache entry (key=%s): %w", entry.Key, err)
	}
	return nil
}

// Get reports an entry past its expiry as missing and deletes it on the way
// out, so stale data never reaches a caller.
func (c *cacheRepository) Get(ctx context.Context, key string) (models.CacheEntry, error) {
	conn, err := c.db.Handle(ctx)
	if err != nil {
		return models.CacheEntry{}, err
	}

	query, args, err := selectCacheQuery(key)
	if err != nil {
		return models.CacheEntry{}, fmt.Errorf("build cache select query: %w", err)
	}

	var (
		entry       models.CacheEntry
		data        string
		createdAtMs int64
		expiresAtMs int64
	)
	err = conn.QueryRowContext(ctx, query, args...).Scan(&entry.Key, &data, &createdAtMs, &expiresAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheEntry{}, fmt.Errorf("%w: cache key %s", ErrNotFound, key)
	}
	if err != nil {
		return models.CacheEntry{}, fmt.Errorf("failed to query cache entry (key=%s): %w", key, err)
	}

	entry.Data = []byte(data)
	entry.Timestamp = time.UnixMilli(createdAtMs)
	entry.ExpiresAt = time.UnixMilli(expiresAtMs)

	if entry.Expired(c.now()) {
		if delErr := c.Delete(ctx, key); delErr != nil {
			c.logger.Warn().
				Str("func", "cacheRepository.Get").
				Str("key", key).
				Err(delErr).
				Msg("failed to drop expired cache entry on read")
		}
		return models.CacheEntry{}, fmt.Errorf("%w: cache key %s expired", ErrNotFound, key)
	}

	return entry, nil
}

func (c *cacheRepository) Delete(ctx context.Context, key string) error {
	conn, err := c.db.Handle(ctx)
	if err != nil {
		return err
	}

	query, args, err := deleteCacheQuery(key)
	if err != nil {
		return fmt.Errorf("build cache delete query: %w", err)
	}
	if _, err = conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete cache entry (key=%s): %w", key, err)
	}
	return nil
}

func (c *cacheRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	conn, err := c.db.Handle(ctx)
	if err != nil {
		return 0, err
	}

	query, args, err := deleteExpiredCacheQuery(now)
	if err != nil {
		return 0, fmt.Errorf("build cache sweep query: %w", err)
	}

	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired cache entries: %w", err)
	}

	swept, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get swept row count: %w", err)
	}
	return swept, nil
}

func (c *cacheRepository) Clear(ctx context.Context) error {
	conn, err := c.db.Handle(ctx)
	if err != nil {
		return err
	}

	query, args, err := clearCacheQuery()
	if err != nil {
		return fmt.Errorf("build cache clear query: %w", err)
	}
	if _, err = conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
