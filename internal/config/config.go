// Package config loads loginstore configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration loaded from environment variables.
type Config struct {
	Path          string
	Key           string
	LogLevel      string
	KDFIterations int

	SyncURL      string
	SyncKey      string
	SyncKeyID    string
	SyncToken    string
	SyncTokenTTL time.Duration
}

// HasSyncCredentials reports whether enough is configured to run a sync
// without prompting.
func (c *Config) HasSyncCredentials() bool {
	return c.SyncURL != "" && c.SyncKey != "" && c.SyncKeyID != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// Optional variables with defaults: LOGINSTORE_PATH (.loginstore),
// LOGINSTORE_LOG_LEVEL (warn), LOGINSTORE_KDF_ITERATIONS (crypto default),
// LOGINSTORE_SYNC_TOKEN_TTL (1h). LOGINSTORE_KEY, LOGINSTORE_SYNC_URL,
// LOGINSTORE_SYNC_KEY, LOGINSTORE_SYNC_KID and LOGINSTORE_SYNC_TOKEN have no
// default.
func Load() (*Config, error) {
	path := ".loginstore"
	if v, ok := os.LookupEnv("LOGINSTORE_PATH"); ok && v != "" {
		path = v
	}

	logLevel := "warn"
	if v, ok := os.LookupEnv("LOGINSTORE_LOG_LEVEL"); ok && v != "" {
		logLevel = v
	}

	iterations := 0
	if v, ok := os.LookupEnv("LOGINSTORE_KDF_ITERATIONS"); ok && v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("LOGINSTORE_KDF_ITERATIONS has invalid value %q", v)
		}
		iterations = parsed
	}

	ttl := time.Hour
	if v, ok := os.LookupEnv("LOGINSTORE_SYNC_TOKEN_TTL"); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("LOGINSTORE_SYNC_TOKEN_TTL has invalid duration %q: %w", v, err)
		}
		ttl = parsed
	}

	return &Config{
		Path:          path,
		Key:           os.Getenv("LOGINSTORE_KEY"),
		LogLevel:      logLevel,
		KDFIterations: iterations,
		SyncURL:       os.Getenv("LOGINSTORE_SYNC_URL"),
		SyncKey:       os.Getenv("LOGINSTORE_SYNC_KEY"),
		SyncKeyID:     os.Getenv("LOGINSTORE_SYNC_KID"),
		SyncToken:     os.Getenv("LOGINSTORE_SYNC_TOKEN"),
		SyncTokenTTL:  ttl,
	}, nil
}
