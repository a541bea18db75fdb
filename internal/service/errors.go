// SPDX-License-Identifier: Apache-2.0

package service

import "errors"

var (
	// ErrOffline is returned by SyncNow when the device has no
	// connectivity; no network I/O is attempted.
	ErrOffline = errors.New("cannot sync while offline")
	// ErrSyncInProgress means another drain is already running.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrSyncIncomplete means the drain ran but some entries failed or
	// were paused on conflicts. Details are available through the queue
	// and conflict introspection APIs.
	ErrSyncIncomplete = errors.New("sync completed with failures")
	// ErrConflictNotFound means Resolve was called for a record with no
	// pending conflict.
	ErrConflictNotFound = errors.New("no pending conflict for record")
	// ErrUnknownStrategy means the resolution named an unrecognized
	// strategy.
	ErrUnknownStrategy = errors.New("unknown resolution strategy")
)
