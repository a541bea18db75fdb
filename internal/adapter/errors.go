// SPDX-License-Identifier: Apache-2.0

package adapter

import "errors"

var (
	// ErrUnauthorized means the backend rejected the credentials.
	ErrUnauthorized = errors.New("backend unauthorized")
	// ErrNotFound means the requested row or object does not exist.
	ErrNotFound = errors.New("backend row not found")
	// ErrUnavailable means the backend could not be reached or answered
	// with a transient status; callers may retry.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrNoToken means no bearer token has been set on the adapter.
	ErrNoToken = errors.New("no auth token set")
)
