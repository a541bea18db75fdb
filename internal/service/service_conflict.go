// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/sitewire/fieldsync/models"
)

// ConflictDetector decides whether a server record diverged since a local
// edit was made, and computes field-level diffs between the two versions.
// It is stateless; detection never mutates either record.
type ConflictDetector struct{}

// NewConflictDetector returns a detector.
func NewConflictDetector() ConflictDetector {
	return ConflictDetector{}
}

// Detect reports whether the server record was modified after the local
// edit. A local record without localUpdatedAt has no edit to protect, so
// the answer is always false regardless of server timestamps.
func (ConflictDetector) Detect(local, server models.Record) bool {
	localMs, ok := local.LocalUpdatedAt()
	if !ok {
		return false
	}

	serverTime, ok := parseServerTimestamp(server[models.FieldUpdatedAt])
	if !ok {
		return false
	}

	return serverTime.UnixMilli() > localMs
}

// FieldDiffs returns the sorted names of every application field whose
// value differs between the two records. Sync bookkeeping fields are never
// reported.
func (ConflictDetector) FieldDiffs(local, server models.Record) []string {
	ignored := make(map[string]struct{}, len(models.MetadataFields))
	for _, f := range models.MetadataFields {
		ignored[f] = struct{}{}
	}

	names := make(map[string]struct{}, len(local)+len(server))
	for k := range local {
		names[k] = struct{}{}
	}
	for k := range server {
		names[k] = struct{}{}
	}

	var diffs []string
	for name := range names {
		if _, skip := ignored[name]; skip {
			continue
		}
		if !deepEqualJSON(local[name], server[name]) {
			diffs = append(diffs, name)
		}
	}

	sort.Strings(diffs)
	return diffs
}

// Describe builds the conflict record handed to the caller for resolution.
func (d ConflictDetector) Describe(collection string, local, server models.Record, now time.Time) models.Conflict {
	return models.Conflict{
		RecordID:   local.ID(),
		Collection: collection,
		Local:      local.Clone(),
		Server:     server.Clone(),
		FieldDiffs: d.FieldDiffs(local, server),
		DetectedAt: now,
	}
}

// Merge produces the field-level merge of a conflict: the server record is
// the base, the named preferLocal fields are taken from the local record,
// and updated_at is stamped to now so the result supersedes both inputs.
func (ConflictDetector) Merge(local, server models.Record, preferLocal []string, now time.Time) models.Record {
	merged := server.Clone()
	merged.ClearLocalState()

	localCopy := local.Clone()
	for _, field := range preferLocal {
		if v, ok := localCopy[field]; ok {
			merged[field] = v
		} else {
			delete(merged, field)
		}
	}

	merged[models.FieldUpdatedAt] = now.UTC().Format(time.RFC3339)
	return merged
}

// parseServerTimestamp reads a server-side updated_at value. Backends emit
// either RFC3339 strings or epoch numbers; epoch values above 1e12 are
// treated as milliseconds, smaller ones as seconds.
func parseServerTimestamp(v any) (time.Time, bool) {
	switch ts := v.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t, true
		}
		return time.Time{}, false
	case float64:
		return epochToTime(int64(ts)), true
	case int64:
		return epochToTime(ts), true
	case int:
		return epochToTime(int64(ts)), true
	case json.Number:
		n, err := ts.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return epochToTime(n), true
	default:
		return time.Time{}, false
	}
}

func epochToTime(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}

// deepEqualJSON compares two values through their canonical JSON encoding,
// which normalises map ordering and the int/float drift a storage round
// trip introduces.
func deepEqualJSON(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return errA == nil && errB == nil
	}
	return bytes.Equal(aj, bj)
}
