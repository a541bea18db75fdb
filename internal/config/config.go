// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// Config is the top-level configuration container for the fieldsync client.
// It aggregates all sub-configurations and is populated by merging values
// from environment variables, command-line flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type Config struct {
	// App holds application-level settings such as the version string.
	App App `envPrefix:"APP_"`

	// Storage holds the local SQLite database settings and the quota
	// ceiling used by the storage health advisor.
	Storage Storage `envPrefix:"STORAGE_"`

	// Backend holds the remote CRUD backend endpoint settings.
	Backend Backend `envPrefix:"BACKEND_"`

	// Sync holds sync engine tunables (retry budget, backoff, timeouts)
	// and the background drain interval.
	Sync Sync `envPrefix:"SYNC_"`

	// Cache holds read-cache tunables.
	Cache Cache `envPrefix:"CACHE_"`

	// Network holds connectivity probe settings.
	Network Network `envPrefix:"NETWORK_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// Version is the semantic version string of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Storage holds configuration of the local persistence layer.
type Storage struct {
	// DBPath is the filesystem path of the local SQLite database file.
	// Env: STORAGE_DB_PATH
	DBPath string `env:"DB_PATH"`

	// QuotaLimitBytes is the advisory size ceiling for the local database.
	// Crossing 95% of it puts the store into the danger level and new
	// offline writes are refused. Zero disables the quota advisor.
	// Env: STORAGE_QUOTA_LIMIT_BYTES
	QuotaLimitBytes int64 `env:"QUOTA_LIMIT_BYTES"`
}

// Backend holds the remote backend endpoint settings.
type Backend struct {
	// BaseURL is the root URL of the hosted backend
	// (e.g. "https://project.example.co").
	// Env: BACKEND_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// APIKey is the project API key sent with every request.
	// Env: BACKEND_API_KEY
	APIKey string `env:"API_KEY"`

	// StorageBucket is the blob storage bucket holding file attachments.
	// Env: BACKEND_STORAGE_BUCKET
	StorageBucket string `env:"STORAGE_BUCKET"`

	// RequestTimeout bounds every outbound backend call (e.g. "15s").
	// Env: BACKEND_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Sync holds sync engine tunables.
type Sync struct {
	// MaxRetries is how many failed delivery attempts a queue entry
	// survives before it is dropped (the record itself is kept).
	// Env: SYNC_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// InitialBackoff seeds the exponential backoff between transient
	// in-flight retries of a single delivery (e.g. "500ms").
	// Env: SYNC_INITIAL_BACKOFF
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF"`

	// DrainInterval is the period of the background drain worker.
	// Env: SYNC_DRAIN_INTERVAL
	DrainInterval time.Duration `env:"DRAIN_INTERVAL"`
}

// Cache holds read-cache tunables.
type Cache struct {
	// DefaultTTL is the expiry applied when CacheData is called with a
	// zero ttl (e.g. "1h").
	// Env: CACHE_DEFAULT_TTL
	DefaultTTL time.Duration `env:"DEFAULT_TTL"`

	// SweepInterval is the period of the expired-entry sweep worker.
	// Env: CACHE_SWEEP_INTERVAL
	SweepInterval time.Duration `env:"SWEEP_INTERVAL"`
}

// Network holds connectivity probe settings.
type Network struct {
	// ProbeInterval is how often connectivity is re-checked.
	// Env: NETWORK_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`

	// ProbeTimeout bounds a single connectivity probe.
	// Env: NETWORK_PROBE_TIMEOUT
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT"`
}

// GetConfig assembles the merged configuration from environment variables,
// command-line flags and the optional JSON file, applies defaults, and
// validates the result.
func GetConfig() (*Config, error) {
	cfg, err := newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, cfg.validate()
}

func (c *Config) applyDefaults() {
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "fieldsync.db"
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = 15 * time.Second
	}
	if c.Sync.MaxRetries <= 0 {
		c.Sync.MaxRetries = 3
	}
	if c.Sync.InitialBackoff <= 0 {
		c.Sync.InitialBackoff = 500 * time.Millisecond
	}
	if c.Sync.DrainInterval <= 0 {
		c.Sync.DrainInterval = 5 * time.Minute
	}
	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = time.Hour
	}
	if c.Cache.SweepInterval <= 0 {
		c.Cache.SweepInterval = 10 * time.Minute
	}
	if c.Network.ProbeInterval <= 0 {
		c.Network.ProbeInterval = 30 * time.Second
	}
	if c.Network.ProbeTimeout <= 0 {
		c.Network.ProbeTimeout = 5 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return ErrInvalidBackendConfigs
	}
	if c.Storage.DBPath == "" {
		return ErrInvalidStorageConfigs
	}
	if c.Sync.MaxRetries <= 0 || c.Sync.DrainInterval <= 0 {
		return ErrInvalidSyncConfigs
	}
	return nil
}
