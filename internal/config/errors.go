// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

// Validation errors returned by [Config.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidBackendConfigs indicates invalid backend settings
	// (for example, a missing base URL).
	ErrInvalidBackendConfigs = errors.New("invalid backend configuration")
	// ErrInvalidStorageConfigs indicates invalid local storage settings
	// (for example, an empty database path).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidSyncConfigs indicates invalid sync engine settings
	// (for example, a non-positive retry budget or drain interval).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
)
