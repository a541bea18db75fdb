// SPDX-License-Identifier: Apache-2.0

package config

import (
	"flag"
	"os"
	"time"
)

// ParseFlags parses all configuration flags from the process arguments.
//
// Flags:
//
//	-d database file path
//	-b backend base URL
//	-api-key backend API key
//	-bucket blob storage bucket
//	-c/-config json file path with configs
//	-request-timeout backend request timeout (e.g., "15s")
//	-sync-max-retries delivery attempts before a queue entry is dropped
//	-sync-drain-interval background drain period (e.g., "5m")
//	-cache-ttl default cache entry TTL (e.g., "1h")
//	-quota-limit local database size ceiling in bytes
func ParseFlags() *Config {
	return parseFlagsFrom(flag.NewFlagSet(os.Args[0], flag.ExitOnError), os.Args[1:])
}

func parseFlagsFrom(fs *flag.FlagSet, args []string) *Config {
	var dbPath string
	var baseURL string
	var apiKey string
	var bucket string
	var jsonConfigPath string
	var requestTimeout time.Duration
	var maxRetries int
	var drainInterval time.Duration
	var cacheTTL time.Duration
	var quotaLimit int64

	fs.StringVar(&dbPath, "d", "", "Local database file path")
	fs.StringVar(&baseURL, "b", "", "Backend base URL")
	fs.StringVar(&apiKey, "api-key", "", "Backend API key")
	fs.StringVar(&bucket, "bucket", "", "Blob storage bucket")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Backend request timeout (e.g., 15s)")
	fs.IntVar(&maxRetries, "sync-max-retries", 0, "Delivery attempts before a queue entry is dropped")
	fs.DurationVar(&drainInterval, "sync-drain-interval", 0, "Background drain period (e.g., 5m)")
	fs.DurationVar(&cacheTTL, "cache-ttl", 0, "Default cache entry TTL (e.g., 1h)")
	fs.Int64Var(&quotaLimit, "quota-limit", 0, "Local database size ceiling in bytes")

	_ = fs.Parse(args)

	return &Config{
		Storage: Storage{
			DBPath:          dbPath,
			QuotaLimitBytes: quotaLimit,
		},
		Backend: Backend{
			BaseURL:        baseURL,
			APIKey:         apiKey,
			StorageBucket:  bucket,
			RequestTimeout: requestTimeout,
		},
		Sync: Sync{
			MaxRetries:    maxRetries,
			DrainInterval: drainInterval,
		},
		Cache: Cache{
			DefaultTTL: cacheTTL,
		},
		JSONFilePath: jsonConfigPath,
	}
}
