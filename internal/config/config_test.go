package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"USERS_API_URL", "VITE_USERS_API_URL", "PRODUCTS_API_URL", "VITE_PRODUCTS_API_URL",
		"HTTP_PORT", "TRUST_PROXY", "SESSION_SECRET", "SESSION_TTL", "REDIS_ADDR", "RATE_LIMIT", "RATE_WINDOW",
		"KAFKA_BROKERS", "KAFKA_TOPIC_PREFIX", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestNewConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg := NewConfig()
	assert.Equal(t, "http://localhost:4001", cfg.UsersAPIURL)
	assert.Equal(t, "http://localhost:4002", cfg.ProductsAPIURL)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.TrustProxy)
}

func TestNewConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("USERS_API_URL", "http://users.internal")
	t.Setenv("VITE_PRODUCTS_API_URL", "http://products.internal")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RATE_LIMIT", "nope")
	t.Setenv("TRUST_PROXY", "true")

	cfg := NewConfig()
	assert.Equal(t, "http://users.internal", cfg.UsersAPIURL)
	assert.Equal(t, "http://products.internal", cfg.ProductsAPIURL)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30, cfg.RateLimit)
	assert.True(t, cfg.TrustProxy)
}

func TestLoadWithoutFileMatchesNewConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("USERS_API_URL", "http://users.internal")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
	assert.Equal(t, "http://users.internal", cfg.UsersAPIURL)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users_api_url: http://from-file:4001
products_api_url: http://from-file:4002
session_ttl: 10m
kafka_brokers: [broker:9092]
`), 0o600))
	t.Setenv("PRODUCTS_API_URL", "http://from-env:4002")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:4001", cfg.UsersAPIURL)
	assert.Equal(t, "http://from-env:4002", cfg.ProductsAPIURL)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"broker:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "8080", cfg.HTTPPort)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
