// SPDX-License-Identifier: Apache-2.0

package models

import "time"

// ResolutionStrategy selects how a detected conflict is settled. The sync
// engine never picks one on its own; a caller (UI or policy code) must.
type ResolutionStrategy string

const (
	// UseLocal keeps the local record outright and re-enqueues it for
	// delivery.
	UseLocal ResolutionStrategy = "use_local"
	// UseServer discards the local edit and adopts the server version.
	UseServer ResolutionStrategy = "use_server"
	// MergeFields takes a caller-supplied list of fields from the local
	// record and everything else from the server record.
	MergeFields ResolutionStrategy = "merge"
)

// Conflict describes a record whose server copy was modified after the local
// edit was made. It is ephemeral: produced on demand during a drain, handed
// to the caller, never persisted. An unresolved conflict simply leaves the
// unsynced record in place and resurfaces on the next sync attempt.
type Conflict struct {
	RecordID   string    `json:"record_id"`
	Collection string    `json:"collection"`
	Local      Record    `json:"local_version"`
	Server     Record    `json:"server_version"`
	FieldDiffs []string  `json:"field_diffs"`
	DetectedAt time.Time `json:"detected_at"`
}

// Key identifies the conflicting record across collections.
func (c Conflict) Key() string {
	return c.Collection + "/" + c.RecordID
}

// Resolution carries the caller's decision for one conflict.
type Resolution struct {
	Strategy ResolutionStrategy `json:"strategy"`
	// PreferLocal lists the field names taken from the local record when
	// Strategy is MergeFields. Ignored otherwise.
	PreferLocal []string `json:"prefer_local,omitempty"`
}
