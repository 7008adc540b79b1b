package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("fraud")
	require.NoError(t, err)

	assert.Equal(t, "fraud", cfg.Server.ServiceName)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)

	assert.Equal(t, 50, cfg.Fraud.TrustWindowSize)
	assert.Equal(t, 15*time.Minute, cfg.Fraud.TrustRecomputeInterval)
	assert.Equal(t, 30*time.Second, cfg.Fraud.PatternCacheTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FRAUD_TRUST_WINDOW_SIZE", "25")
	t.Setenv("FRAUD_TRUST_RECOMPUTE_MINUTES", "5")
	t.Setenv("SENTRY_ENABLED", "true")

	cfg, err := Load("fraud")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Fraud.TrustWindowSize)
	assert.Equal(t, 5*time.Minute, cfg.Fraud.TrustRecomputeInterval)
	assert.True(t, cfg.Sentry.Enabled)
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "secret",
		DBName:   "donations",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=donations sslmode=disable",
		cfg.DSN(),
	)
}

func TestRedisConfigAddr(t *testing.T) {
	cfg := RedisConfig{Host: "redis.internal", Port: "6380"}
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr())
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg, err := Load("fraud")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Database.MaxConns)
}
