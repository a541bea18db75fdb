// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"os"

	"github.com/sitewire/fieldsync/models"
)

// Quota severity thresholds as a fraction of the configured ceiling.
const (
	quotaWarningAt  = 0.70
	quotaCriticalAt = 0.85
	quotaDangerAt   = 0.95
)

// QuotaAdvisor grades how close the local database file is to its configured
// size ceiling. It is advisory except at the danger level, where the store
// refuses new offline writes up front (ErrStorageFull) instead of letting
// them fail mid-transaction.
type QuotaAdvisor struct {
	path  string
	limit int64
}

// NewQuotaAdvisor builds an advisor for the database at path. A zero or
// negative limit disables quota checks entirely.
func NewQuotaAdvisor(path string, limit int64) *QuotaAdvisor {
	return &QuotaAdvisor{path: path, limit: limit}
}

// Health reports the current storage capacity snapshot.
func (q *QuotaAdvisor) Health() models.StorageHealth {
	health := models.StorageHealth{
		Level:      models.StorageHealthy,
		LimitBytes: q.limit,
	}
	if q.limit <= 0 {
		return health
	}

	info, err := os.Stat(q.path)
	if err != nil {
		// A missing file means nothing is stored yet.
		return health
	}

	health.UsedBytes = info.Size()
	health.UsedPercent = float64(health.UsedBytes) / float64(q.limit) * 100

	ratio := float64(health.UsedBytes) / float64(q.limit)
	switch {
	case ratio >= quotaDangerAt:
		health.Level = models.StorageDanger
	case ratio >= quotaCriticalAt:
		health.Level = models.StorageCritical
	case ratio >= quotaWarningAt:
		health.Level = models.StorageWarning
	}

	return health
}

// GuardWrite returns ErrStorageFull when storage is at the danger level.
func (q *QuotaAdvisor) GuardWrite() error {
	health := q.Health()
	if health.Level == models.StorageDanger {
		return fmt.Errorf("%w: %d of %d bytes used", ErrStorageFull, health.UsedBytes, health.LimitBytes)
	}
	return nil
}
