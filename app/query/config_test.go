package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://{chain}.hypersync.xyz", cfg.Hypersync.URLTemplate)
	assert.Equal(t, uint64(10_000), cfg.Hypersync.ReverseStep)
	assert.NotNil(t, cfg.Hypersync.HTTPClient)
	assert.Zero(t, cfg.Hypersync.HTTPClient.Timeout)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, 1000, cfg.MaxLimit)
	assert.Equal(t, 5*time.Minute, cfg.PageCacheTTL)
	assert.True(t, cfg.ErrorStatusCompat)
	assert.False(t, cfg.RedisEnabled)
	assert.Zero(t, cfg.RPS)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("HYPERSYNC_URL_TEMPLATE", "http://indexer.local/{chain}/")
	t.Setenv("ENVIO_HYPERSYNC_API_KEY", "token")
	t.Setenv("HYPERSYNC_RPS", "2.5")
	t.Setenv("MAX_LIMIT", "200")
	t.Setenv("DEFAULT_LIMIT", "20")
	t.Setenv("ERROR_STATUS_COMPAT", "false")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PAGE_CACHE_TTL", "90s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	ep, err := cfg.Hypersync.Endpoint(10)
	require.NoError(t, err)
	assert.Equal(t, "http://indexer.local/10", ep)
	assert.Equal(t, "token", cfg.Hypersync.BearerToken)
	assert.Equal(t, 2.5, cfg.RPS)
	assert.Equal(t, 20, cfg.DefaultLimit)
	assert.Equal(t, 200, cfg.MaxLimit)
	assert.False(t, cfg.ErrorStatusCompat)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 90*time.Second, cfg.PageCacheTTL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("template without placeholder", func(t *testing.T) {
		t.Setenv("HYPERSYNC_URL_TEMPLATE", "https://eth.hypersync.xyz")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "HYPERSYNC_URL_TEMPLATE")
	})
	t.Run("default above max", func(t *testing.T) {
		t.Setenv("DEFAULT_LIMIT", "500")
		t.Setenv("MAX_LIMIT", "100")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
