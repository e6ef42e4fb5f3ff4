package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithSecret(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "")
	t.Setenv("TOKEN_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 6000
jwtSecret: from-file
tokenTTL: 30m
corsOrigins: ["https://charts.example"]
statsCron: "@hourly"
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PORT", "7000")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("STATS_CRON", "@hourly")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.ServerPort)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"https://charts.example"}, cfg.CORSOrigins)
	assert.Equal(t, "@hourly", cfg.StatsCronSpec)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("PORT", "eighty")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadTrustProxy(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("TRUST_PROXY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.TrustProxy)

	t.Setenv("TRUST_PROXY", "true")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.TrustProxy)

	t.Setenv("TRUST_PROXY", "sometimes")
	_, err = Load()
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}

func TestLoadDotEnvFillsUnsetVars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-env-file\nLOG_LEVEL=debug\n"), 0o600))

	t.Setenv("ENV_FILE", path)
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "from-process")
	// Registers restoration, then removes the variable so the file can set it.
	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-process", cfg.JWTSecret, "process env wins over the file")
	assert.Equal(t, "debug", cfg.LogLevel)
}
