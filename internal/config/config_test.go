// SPDX-License-Identifier: Apache-2.0

package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.example.co")
	t.Setenv("BACKEND_REQUEST_TIMEOUT", "20s")
	t.Setenv("STORAGE_DB_PATH", "/tmp/field.db")
	t.Setenv("SYNC_MAX_RETRIES", "5")
	t.Setenv("CACHE_DEFAULT_TTL", "30m")

	cfg := &Config{}
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "https://api.example.co", cfg.Backend.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.Backend.RequestTimeout)
	assert.Equal(t, "/tmp/field.db", cfg.Storage.DBPath)
	assert.Equal(t, 5, cfg.Sync.MaxRetries)
	assert.Equal(t, 30*time.Minute, cfg.Cache.DefaultTTL)
}

func TestParseFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := parseFlagsFrom(fs, []string{
		"-d", "site.db",
		"-b", "https://api.example.co",
		"-sync-max-retries", "4",
		"-sync-drain-interval", "2m",
		"-quota-limit", "1048576",
	})

	assert.Equal(t, "site.db", cfg.Storage.DBPath)
	assert.Equal(t, "https://api.example.co", cfg.Backend.BaseURL)
	assert.Equal(t, 4, cfg.Sync.MaxRetries)
	assert.Equal(t, 2*time.Minute, cfg.Sync.DrainInterval)
	assert.Equal(t, int64(1048576), cfg.Storage.QuotaLimitBytes)
}

func TestParseJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	payload := `{
		"storage": {"db_path": "json.db", "quota_limit_bytes": 2048},
		"backend": {"base_url": "https://json.example.co", "request_timeout": "10s"},
		"sync": {"max_retries": 7, "drain_interval": "1m"},
		"cache": {"default_ttl": "45m"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "json.db", cfg.Storage.DBPath)
	assert.Equal(t, int64(2048), cfg.Storage.QuotaLimitBytes)
	assert.Equal(t, "https://json.example.co", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.RequestTimeout)
	assert.Equal(t, 7, cfg.Sync.MaxRetries)
	assert.Equal(t, time.Minute, cfg.Sync.DrainInterval)
	assert.Equal(t, 45*time.Minute, cfg.Cache.DefaultTTL)
}

func TestParseJSON_MissingFile(t *testing.T) {
	_, err := parseJSON("does-not-exist.json")
	require.Error(t, err)
}

func TestConfigBuilder_MergePriority(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&Config{Backend: Backend{BaseURL: "https://first.example.co"}},
		&Config{Backend: Backend{BaseURL: "https://second.example.co", APIKey: "key-2"}},
	)

	cfg, err := b.build()
	require.NoError(t, err)

	// mergo keeps the first non-zero value and fills gaps from later layers.
	assert.Equal(t, "https://first.example.co", cfg.Backend.BaseURL)
	assert.Equal(t, "key-2", cfg.Backend.APIKey)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{Backend: Backend{BaseURL: "https://api.example.co"}}
	cfg.applyDefaults()

	assert.Equal(t, "fieldsync.db", cfg.Storage.DBPath)
	assert.Equal(t, 15*time.Second, cfg.Backend.RequestTimeout)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.InitialBackoff)
	assert.Equal(t, 5*time.Minute, cfg.Sync.DrainInterval)
	assert.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
	assert.Equal(t, 30*time.Second, cfg.Network.ProbeInterval)

	require.NoError(t, cfg.validate())
}

func TestValidate_MissingBackendURL(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.ErrorIs(t, cfg.validate(), ErrInvalidBackendConfigs)
}
