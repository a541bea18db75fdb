// SPDX-License-Identifier: Apache-2.0

package store

import "errors"

var (
	// ErrNotFound is returned when a record, queue entry or cache entry
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownCollection is returned for a collection name missing from
	// models.Collections.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrUnknownIndex is returned when GetByIndex names an index the
	// collection does not declare.
	ErrUnknownIndex = errors.New("unknown index")
	// ErrMissingRecordID is returned when a record lacks the "id" field.
	ErrMissingRecordID = errors.New("record has no id")
	// ErrStorageFull is returned when the quota advisor reports the danger
	// level: new offline writes are refused up front instead of being
	// attempted and failed.
	ErrStorageFull = errors.New("local storage quota exceeded")
)
