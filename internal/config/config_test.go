package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 10000, cfg.Cache.OHLCVCapacity)
	assert.Equal(t, 50000, cfg.Cache.TickCapacity)
	assert.Equal(t, "backtest.direct", cfg.RabbitMQ.Exchange)
	assert.Equal(t, 10, cfg.RabbitMQ.PrefetchCount)
	assert.Equal(t, time.Duration(0), cfg.Validation.MaxGap)
	assert.Equal(t, 0.05, cfg.Validation.MaxSpreadPercent)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("ENVIRONMENT", "production")
	os.Setenv("CACHE_OHLCV_CAPACITY", "2500")
	os.Setenv("REDIS_TIMEOUT", "2500ms")
	os.Setenv("VALIDATION_FAIL_FAST", "true")
	os.Setenv("VALIDATION_MAX_SPREAD_PERCENT", "0.02")
	defer clearEnv(t)

	cfg := Load()
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 2500, cfg.Cache.OHLCVCapacity)
	assert.Equal(t, 2500*time.Millisecond, cfg.Redis.Timeout)
	assert.True(t, cfg.Validation.FailFast)
	assert.Equal(t, 0.02, cfg.Validation.MaxSpreadPercent)
}

func TestGetEnvAsDurationFallsBackOnUnparseable(t *testing.T) {
	clearEnv(t)
	os.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")
	defer clearEnv(t)

	cfg := Load()
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "SERVER_PORT", "SERVER_READ_TIMEOUT", "CACHE_OHLCV_CAPACITY",
		"REDIS_TIMEOUT", "VALIDATION_FAIL_FAST", "VALIDATION_MAX_SPREAD_PERCENT",
	} {
		os.Unsetenv(key)
	}
}
