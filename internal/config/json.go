// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// jsonConfig mirrors [Config] with string-friendly duration fields so a
// config file can say "15s" instead of nanosecond integers.
type jsonConfig struct {
	App struct {
		Version string `json:"version"`
	} `json:"app,omitempty"`

	Storage struct {
		DBPath          string `json:"db_path"`
		QuotaLimitBytes int64  `json:"quota_limit_bytes"`
	} `json:"storage,omitempty"`

	Backend struct {
		BaseURL        string   `json:"base_url"`
		APIKey         string   `json:"api_key"`
		StorageBucket  string   `json:"storage_bucket"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"backend,omitempty"`

	Sync struct {
		MaxRetries     int      `json:"max_retries"`
		InitialBackoff Duration `json:"initial_backoff"`
		DrainInterval  Duration `json:"drain_interval"`
	} `json:"sync,omitempty"`

	Cache struct {
		DefaultTTL    Duration `json:"default_ttl"`
		SweepInterval Duration `json:"sweep_interval"`
	} `json:"cache,omitempty"`

	Network struct {
		ProbeInterval Duration `json:"probe_interval"`
		ProbeTimeout  Duration `json:"probe_timeout"`
	} `json:"network,omitempty"`
}

func parseJSON(jsonFilePath string) (*Config, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg jsonConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &Config{
		App: App{
			Version: jsonCfg.App.Version,
		},
		Storage: Storage{
			DBPath:          jsonCfg.Storage.DBPath,
			QuotaLimitBytes: jsonCfg.Storage.QuotaLimitBytes,
		},
		Backend: Backend{
			BaseURL:        jsonCfg.Backend.BaseURL,
			APIKey:         jsonCfg.Backend.APIKey,
			StorageBucket:  jsonCfg.Backend.StorageBucket,
			RequestTimeout: time.Duration(jsonCfg.Backend.RequestTimeout),
		},
		Sync: Sync{
			MaxRetries:     jsonCfg.Sync.MaxRetries,
			InitialBackoff: time.Duration(jsonCfg.Sync.InitialBackoff),
			DrainInterval:  time.Duration(jsonCfg.Sync.DrainInterval),
		},
		Cache: Cache{
			DefaultTTL:    time.Duration(jsonCfg.Cache.DefaultTTL),
			SweepInterval: time.Duration(jsonCfg.Cache.SweepInterval),
		},
		Network: Network{
			ProbeInterval: time.Duration(jsonCfg.Network.ProbeInterval),
			ProbeTimeout:  time.Duration(jsonCfg.Network.ProbeTimeout),
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
