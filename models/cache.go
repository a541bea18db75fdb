// SPDX-License-Identifier: Apache-2.0

package models

import "time"

// CacheEntry is one memoized remote read result in the local cache table.
// Expiry is purely time based; there is no size or LRU eviction.
type CacheEntry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
