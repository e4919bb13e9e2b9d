package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"POSTGRES_DSN", "REDIS_ADDR", "REDIS_EVENT_STREAM", "WORKLOAD_HELPER_CAPACITY",
		"WORKLOAD_REBALANCE_INTERVAL_SECONDS", "WRITE_LOCK_TIMEOUT_MS", "REDIS_DB",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "helpdesk.ticket.events", cfg.Redis.EventStream)
	assert.Equal(t, 10, cfg.Workload.HelperCapacity)
	assert.Zero(t, cfg.Workload.RebalanceInterval())
	assert.Equal(t, 5*time.Second, cfg.Workload.WriteLockTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_DB", "")
	t.Setenv("WORKLOAD_HELPER_CAPACITY", "4")
	t.Setenv("WORKLOAD_REBALANCE_INTERVAL_SECONDS", "90")
	t.Setenv("WRITE_LOCK_TIMEOUT_MS", "250")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("AUTH_BOOTSTRAP_ADMIN", "root@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workload.HelperCapacity)
	assert.Equal(t, 90*time.Second, cfg.Workload.RebalanceInterval())
	assert.Equal(t, 250*time.Millisecond, cfg.Workload.WriteLockTimeout())
	assert.Equal(t, "127.0.0.1:9090", cfg.App.Addr())
	assert.Equal(t, "root@example.com", cfg.Auth.BootstrapAdmin)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("REDIS_DB", "")
	t.Setenv("WORKLOAD_HELPER_CAPACITY", "-1")
	_, err = Load()
	assert.Error(t, err)
}
