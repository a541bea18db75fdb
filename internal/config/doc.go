// SPDX-License-Identifier: Apache-2.0

// Package config assembles the fieldsync client configuration from three
// layered sources: environment variables, command-line flags, and an
// optional JSON file, merged in that order with mergo (earlier sources win
// for non-zero fields). Defaults are applied after merging and the final
// result is validated.
package config
