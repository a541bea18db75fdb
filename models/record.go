// SPDX-License-Identifier: Apache-2.0

package models

import "encoding/json"

// Reserved field names stamped onto records by the local store and the sync
// engine. They describe sync bookkeeping state, never application data, and
// are excluded from conflict field diffs and from payloads sent to the
// backend.
const (
	FieldID             = "id"
	FieldSynced         = "synced"
	FieldLocalUpdatedAt = "localUpdatedAt"
	FieldSyncedAt       = "syncedAt"
	FieldUpdatedAt      = "updated_at"
	FieldCreatedAt      = "created_at"
	FieldPendingUpload  = "pendingUpload"
)

// MetadataFields lists every reserved field name. Order is not significant.
var MetadataFields = []string{
	FieldSynced,
	FieldLocalUpdatedAt,
	FieldSyncedAt,
	FieldUpdatedAt,
	FieldCreatedAt,
	FieldPendingUpload,
}

// Record is a schemaless document stored in a named collection. Every record
// carries a unique string "id"; records written through the local store
// additionally carry the sync metadata overlay (synced, localUpdatedAt,
// syncedAt).
type Record map[string]any

// ID returns the record's primary key, or "" when absent.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// Synced reports whether the record has been confirmed delivered to the
// backend. Records that never passed through the local write path (pure
// server snapshots) report true.
func (r Record) Synced() bool {
	v, ok := r[FieldSynced]
	if !ok {
		return true
	}
	b, _ := v.(bool)
	return b
}

// LocalUpdatedAt returns the epoch-millisecond timestamp of the last local
// write, and false when the record has never been edited locally.
func (r Record) LocalUpdatedAt() (int64, bool) {
	return r.Int64Field(FieldLocalUpdatedAt)
}

// Int64Field reads a numeric field tolerating the types a JSON round trip
// can produce (float64, json.Number) alongside native Go integers.
func (r Record) Int64Field(name string) (int64, bool) {
	switch v := r[name].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// StringField reads a string field, reporting false when absent or not a
// string.
func (r Record) StringField(name string) (string, bool) {
	v, ok := r[name].(string)
	return v, ok && v != ""
}

// Clone returns a deep copy of the record. Nested maps and slices are copied
// recursively so mutations of the clone never leak into the original.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// StampLocalWrite marks the record as locally modified and not yet delivered.
// now is epoch milliseconds.
func (r Record) StampLocalWrite(now int64) {
	r[FieldSynced] = false
	r[FieldLocalUpdatedAt] = now
	delete(r, FieldSyncedAt)
}

// StampSynced marks the record as confirmed delivered at now (epoch ms).
func (r Record) StampSynced(now int64) {
	r[FieldSynced] = true
	r[FieldSyncedAt] = now
}

// ClearLocalState strips the sync metadata overlay, returning the record to
// the shape of a pure server snapshot.
func (r Record) ClearLocalState() {
	delete(r, FieldSynced)
	delete(r, FieldLocalUpdatedAt)
	delete(r, FieldSyncedAt)
}

// WirePayload returns a copy of the record with all local-only bookkeeping
// fields removed, suitable for sending to the backend.
func (r Record) WirePayload() Record {
	out := r.Clone()
	delete(out, FieldSynced)
	delete(out, FieldLocalUpdatedAt)
	delete(out, FieldSyncedAt)
	delete(out, FieldPendingUpload)
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case Record:
		return map[string]any(val.Clone())
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
