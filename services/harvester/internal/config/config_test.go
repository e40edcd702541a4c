package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/catalog")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, int64(15<<20), cfg.MaxResponseBytes)
	assert.Equal(t, CacheMemory, cfg.CacheDriver)
	assert.Equal(t, "@daily", cfg.ScanCron)
	assert.False(t, cfg.DryRun)
}

func TestLoad_DatabaseOptional(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DRY_RUN", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.DryRun)

	t.Setenv("DRY_RUN", "true")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.DryRun)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/catalog")
	t.Setenv("HARVESTER_CONCURRENCY", "50")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("CACHE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("POLICY_FILE", "policy.yaml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, CacheRedis, cfg.CacheDriver)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "policy.yaml", cfg.PolicyFile)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"Timeout":     {"FETCH_TIMEOUT", "soon"},
		"Concurrency": {"HARVESTER_CONCURRENCY", "many"},
		"MaxBytes":    {"MAX_RESPONSE_BYTES", "-1"},
		"CacheDriver": {"CACHE_DRIVER", "memcached"},
		"RedisNoAddr": {"CACHE_DRIVER", "redis"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/catalog")
			t.Setenv("REDIS_ADDR", "")
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestClampConcurrency(t *testing.T) {
	assert.Equal(t, 1, ClampConcurrency(0))
	assert.Equal(t, 5, ClampConcurrency(5))
	assert.Equal(t, 8, ClampConcurrency(9))
}
