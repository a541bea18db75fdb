// SPDX-License-Identifier: Apache-2.0

package models

import "time"

// SyncAction is the kind of mutation a queue entry replays against the
// backend.
type SyncAction string

const (
	ActionCreate SyncAction = "create"
	ActionUpdate SyncAction = "update"
	ActionDelete SyncAction = "delete"
)

// SyncEntry is one durable pending mutation in the sync queue. The queue is a
// log: rapid successive edits of the same record append separate entries and
// the engine drains them oldest first, so the latest snapshot always lands
// last.
type SyncEntry struct {
	// ID is the queue entry id (UUIDv7), distinct from the record id.
	ID string `json:"id"`
	// Collection is the originating collection name.
	Collection string `json:"collection"`
	// RecordID is the primary key of the mutated record.
	RecordID string `json:"record_id"`
	// Action is the mutation kind.
	Action SyncAction `json:"action"`
	// Data is the full record snapshot captured at enqueue time. For
	// deletes it holds the pre-delete record so the backend call and any
	// audit trail can see what was removed.
	Data Record `json:"data"`
	// Timestamp orders the queue.
	Timestamp time.Time `json:"timestamp"`
	// RetryCount is the number of failed delivery attempts so far.
	RetryCount int `json:"retry_count"`
	// LastError holds the text of the most recent delivery failure.
	LastError string `json:"last_error,omitempty"`
}
