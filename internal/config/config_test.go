package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allConfigKeys = []string{
	"LOGINSTORE_PATH",
	"LOGINSTORE_KEY",
	"LOGINSTORE_LOG_LEVEL",
	"LOGINSTORE_KDF_ITERATIONS",
	"LOGINSTORE_SYNC_URL",
	"LOGINSTORE_SYNC_KEY",
	"LOGINSTORE_SYNC_KID",
	"LOGINSTORE_SYNC_TOKEN",
	"LOGINSTORE_SYNC_TOKEN_TTL",
}

// isolateConfigEnv unsets all LOGINSTORE_ env vars for the duration of a test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ".loginstore", cfg.Path)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 0, cfg.KDFIterations)
	assert.Equal(t, time.Hour, cfg.SyncTokenTTL)
	assert.Empty(t, cfg.Key)
	assert.False(t, cfg.HasSyncCredentials())
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LOGINSTORE_PATH", "/tmp/logins.db")
	t.Setenv("LOGINSTORE_KEY", "secret")
	t.Setenv("LOGINSTORE_LOG_LEVEL", "debug")
	t.Setenv("LOGINSTORE_KDF_ITERATIONS", "5000")
	t.Setenv("LOGINSTORE_SYNC_URL", "file:///tmp/remote")
	t.Setenv("LOGINSTORE_SYNC_KEY", "sync-secret")
	t.Setenv("LOGINSTORE_SYNC_KID", "kid-1")
	t.Setenv("LOGINSTORE_SYNC_TOKEN", "tok")
	t.Setenv("LOGINSTORE_SYNC_TOKEN_TTL", "10m")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/logins.db", cfg.Path)
	assert.Equal(t, "secret", cfg.Key)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5000, cfg.KDFIterations)
	assert.Equal(t, "file:///tmp/remote", cfg.SyncURL)
	assert.Equal(t, "sync-secret", cfg.SyncKey)
	assert.Equal(t, "kid-1", cfg.SyncKeyID)
	assert.Equal(t, "tok", cfg.SyncToken)
	assert.Equal(t, 10*time.Minute, cfg.SyncTokenTTL)
	assert.True(t, cfg.HasSyncCredentials())
}

func TestLoad_InvalidIterations(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LOGINSTORE_KDF_ITERATIONS", "many")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOGINSTORE_KDF_ITERATIONS")
}

func TestLoad_InvalidTTL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LOGINSTORE_SYNC_TOKEN_TTL", "soon")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOGINSTORE_SYNC_TOKEN_TTL")
}
