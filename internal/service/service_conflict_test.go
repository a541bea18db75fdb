// SPDX-License-Identifier: Apache-2.0

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewire/fieldsync/models"
)

func TestConflictDetector_Detect(t *testing.T) {
	d := NewConflictDetector()
	t1 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	tests := []struct {
		name   string
		local  models.Record
		server models.Record
		want   bool
	}{
		{
			name:   "server newer than local edit",
			local:  models.Record{"id": "x", "localUpdatedAt": t1.UnixMilli()},
			server: models.Record{"id": "x", "updated_at": t2.Format(time.RFC3339)},
			want:   true,
		},
		{
			name:   "server older than local edit",
			local:  models.Record{"id": "x", "localUpdatedAt": t2.UnixMilli()},
			server: models.Record{"id": "x", "updated_at": t1.Format(time.RFC3339)},
			want:   false,
		},
		{
			name:   "no local edit to protect",
			local:  models.Record{"id": "x"},
			server: models.Record{"id": "x", "updated_at": t2.Format(time.RFC3339)},
			want:   false,
		},
		{
			name:   "server timestamp missing",
			local:  models.Record{"id": "x", "localUpdatedAt": t1.UnixMilli()},
			server: models.Record{"id": "x"},
			want:   false,
		},
		{
			name:   "epoch millisecond server timestamp",
			local:  models.Record{"id": "x", "localUpdatedAt": t1.UnixMilli()},
			server: models.Record{"id": "x", "updated_at": float64(t2.UnixMilli())},
			want:   true,
		},
		{
			name:   "epoch second server timestamp",
			local:  models.Record{"id": "x", "localUpdatedAt": t2.UnixMilli()},
			server: models.Record{"id": "x", "updated_at": float64(t1.Unix())},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.local, tt.server))
		})
	}
}

func TestConflictDetector_FieldDiffs(t *testing.T) {
	d := NewConflictDetector()

	local := models.Record{
		"id":             "m-1",
		"title":          "Local Title",
		"color":          "red",
		"points":         []any{float64(1), float64(2)},
		"synced":         false,
		"localUpdatedAt": int64(1700000000000),
	}
	server := models.Record{
		"id":         "m-1",
		"title":      "Server Title",
		"color":      "red",
		"points":     []any{float64(1), float64(2)},
		"updated_at": "2026-03-10T12:00:00Z",
		"created_at": "2026-03-01T09:00:00Z",
	}

	diffs := d.FieldDiffs(local, server)
	assert.Equal(t, []string{"title"}, diffs)
}

func TestConflictDetector_FieldDiffsNeverReportMetadata(t *testing.T) {
	d := NewConflictDetector()

	local := models.Record{"id": "x", "synced": false, "localUpdatedAt": int64(1), "pendingUpload": "/tmp/f"}
	server := models.Record{"id": "x", "updated_at": "2026-01-01T00:00:00Z", "created_at": "2025-01-01T00:00:00Z"}

	assert.Empty(t, d.FieldDiffs(local, server))
}

func TestConflictDetector_FieldDiffsIncludesOneSidedFields(t *testing.T) {
	d := NewConflictDetector()

	local := models.Record{"id": "x", "note": "only local"}
	server := models.Record{"id": "x", "voltage": float64(230)}

	assert.Equal(t, []string{"note", "voltage"}, d.FieldDiffs(local, server))
}

func TestConflictDetector_Merge(t *testing.T) {
	d := NewConflictDetector()
	now := time.Date(2026, 3, 12, 8, 30, 0, 0, time.UTC)

	local := models.Record{
		"id":             "b-1",
		"amount":         float64(1250),
		"note":           "field estimate",
		"synced":         false,
		"localUpdatedAt": int64(1700000000000),
	}
	server := models.Record{
		"id":         "b-1",
		"amount":     float64(900),
		"category":   "labor",
		"updated_at": "2026-03-11T10:00:00Z",
	}

	merged := d.Merge(local, server, []string{"amount", "note"}, now)

	assert.Equal(t, float64(1250), merged["amount"])
	assert.Equal(t, "field estimate", merged["note"])
	assert.Equal(t, "labor", merged["category"])
	assert.Equal(t, now.Format(time.RFC3339), merged["updated_at"])
	assert.NotContains(t, merged, "synced")
	assert.NotContains(t, merged, "localUpdatedAt")

	// inputs are untouched
	assert.Equal(t, float64(900), server["amount"])
	assert.NotContains(t, server, "note")
}

func TestConflictDetector_MergePreferLocalAbsentFieldDeletes(t *testing.T) {
	d := NewConflictDetector()

	local := models.Record{"id": "b-1"}
	server := models.Record{"id": "b-1", "note": "server note"}

	merged := d.Merge(local, server, []string{"note"}, time.Now())
	assert.NotContains(t, merged, "note")
}

func TestConflictDetector_Describe(t *testing.T) {
	d := NewConflictDetector()
	now := time.Now()

	local := models.Record{"id": "m-1", "title": "Local Title", "localUpdatedAt": int64(10)}
	server := models.Record{"id": "m-1", "title": "Server Title", "updated_at": "2026-03-10T12:00:00Z"}

	c := d.Describe("markups", local, server, now)
	assert.Equal(t, "m-1", c.RecordID)
	assert.Equal(t, "markups", c.Collection)
	assert.Equal(t, "markups/m-1", c.Key())
	assert.Equal(t, []string{"title"}, c.FieldDiffs)
	assert.Equal(t, now, c.DetectedAt)

	// snapshots are copies
	c.Local["title"] = "mutated"
	assert.Equal(t, "Local Title", local["title"])
}

func TestParseServerTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  time.Time
		ok    bool
	}{
		{name: "rfc3339", value: "2026-03-10T12:00:00Z", want: want, ok: true},
		{name: "rfc3339 nano", value: "2026-03-10T12:00:00.000000Z", want: want, ok: true},
		{name: "epoch milliseconds", value: float64(want.UnixMilli()), want: want, ok: true},
		{name: "epoch seconds", value: float64(want.Unix()), want: want, ok: true},
		{name: "garbage string", value: "yesterday", ok: false},
		{name: "nil", value: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseServerTimestamp(tt.value)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			}
		})
	}
}
