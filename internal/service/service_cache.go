// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/internal/store"
	"github.com/sitewire/fieldsync/models"
)

// CacheService memoizes remote read results in the local TTL cache.
type CacheService struct {
	repo       store.CacheRepository
	defaultTTL time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

// NewCacheService builds the cache service over the cache repository.
func NewCacheService(repo store.CacheRepository, cfg config.Cache, log *logger.Logger) *CacheService {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &CacheService{
		repo:       repo,
		defaultTTL: ttl,
		logger:     log,
		now:        time.Now,
	}
}

// CacheData stores data under key. A zero or negative ttl uses the
// configured default. Repeated calls with the same key overwrite the prior
// entry; only the latest expiry governs.
func (c *CacheService) CacheData(ctx context.Context, key string, data any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal cache data for %q: %w", key, err)
	}

	now := c.now()
	entry := models.CacheEntry{
		Key:       key,
		Data:      raw,
		Timestamp: now,
		ExpiresAt: now.Add(ttl),
	}
	if err = c.repo.Put(ctx, entry); err != nil {
		return fmt.Errorf("cache %q: %w", key, err)
	}
	return nil
}

// GetCachedData unmarshals the cached value for key into dest. Missing and
// expired entries both return store.ErrNotFound.
func (c *CacheService) GetCachedData(ctx context.Context, key string, dest any) error {
	entry, err := c.repo.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get cached %q: %w", key, err)
	}

	if err = json.Unmarshal(entry.Data, dest); err != nil {
		return fmt.Errorf("decode cached %q: %w", key, err)
	}
	return nil
}

// ClearExpired removes every entry past its expiry and reports how many
// were dropped.
func (c *CacheService) ClearExpired(ctx context.Context) (int64, error) {
	n, err := c.repo.DeleteExpired(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("clear expired cache entries: %w", err)
	}
	if n > 0 {
		c.logger.Debug().Str("func", "ClearExpired").Int64("removed", n).Msg("swept expired cache entries")
	}
	return n, nil
}

// Delete removes one cache entry.
func (c *CacheService) Delete(ctx context.Context, key string) error {
	return c.repo.Delete(ctx, key)
}

// Clear empties the cache.
func (c *CacheService) Clear(ctx context.Context) error {
	return c.repo.Clear(ctx)
}
