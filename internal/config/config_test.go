package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "DATABASE_URL", "REDIS_ADDR", "REDIS_DB",
		"LEDGER_START", "SALE_MAX_RETRIES", "PERIOD_LOCK_TTL_SECONDS", "DB_TIMEZONE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Address())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.SaleMaxRetries)
	assert.Equal(t, 30*time.Second, cfg.PeriodLockTTL)
	assert.Equal(t, "UTC", cfg.Database.TimeZone)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoadLedgerStart(t *testing.T) {
	t.Setenv("LEDGER_START", "2025-01")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2025, cfg.LedgerStart.Year)
	assert.Equal(t, time.January, cfg.LedgerStart.Month)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("LEDGER_START", "2025-13")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("LEDGER_START", "")
	t.Setenv("SALE_MAX_RETRIES", "0")
	_, err = Load()
	assert.Error(t, err)
}
