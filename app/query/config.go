package query

import (
	"fmt"
	"time"

	"github.com/canopy-network/addrhistory/pkg/hypersync"
	"github.com/canopy-network/addrhistory/pkg/redis"
	"github.com/canopy-network/addrhistory/pkg/utils"
)

// Config is everything the process reads from the environment, collected once at boot.
type Config struct {
	LogLevel    string
	LogEncoding string

	Hypersync hypersync.Config
	RPS       float64
	Burst     int

	DefaultLimit int
	MaxLimit     int

	ChainsFile        string
	HeightRefreshCron string
	HeightWorkers     int

	RedisEnabled bool
	Redis        redis.Config
	PageCacheTTL time.Duration

	// ErrorStatusCompat answers failed pages with 200 instead of 502/504.
	ErrorStatusCompat bool
}

// LoadConfig reads the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		LogLevel:    utils.Env("LOG_LEVEL", "info"),
		LogEncoding: utils.Env("LOG_ENCODING", "json"),

		Hypersync: hypersync.Config{
			URLTemplate:    utils.Env("HYPERSYNC_URL_TEMPLATE", "https://{chain}.hypersync.xyz"),
			BearerToken:    utils.Env("ENVIO_HYPERSYNC_API_KEY", ""),
			ReverseStep:    uint64(utils.EnvInt64("HYPERSYNC_REVERSE_STEP", 10_000)),
			ReverseMaxStep: uint64(utils.EnvInt64("HYPERSYNC_REVERSE_MAX_STEP", 1_000_000)),
			HTTPClient:     hypersync.NewHTTPClient(),
		},
		RPS:   utils.EnvFloat("HYPERSYNC_RPS", 0),
		Burst: utils.EnvInt("HYPERSYNC_BURST", 10),

		DefaultLimit: utils.EnvInt("DEFAULT_LIMIT", 50),
		MaxLimit:     utils.EnvInt("MAX_LIMIT", 1000),

		ChainsFile:        utils.Env("CHAINS_FILE", ""),
		HeightRefreshCron: utils.Env("HEIGHT_REFRESH_CRON", "*/30 * * * * *"),
		HeightWorkers:     utils.EnvInt("HEIGHT_WORKERS", 8),

		RedisEnabled: utils.EnvBool("REDIS_ENABLED", false),
		Redis: redis.Config{
			Host:     utils.Env("REDIS_HOST", "localhost"),
			Port:     utils.Env("REDIS_PORT", "6379"),
			Password: utils.Env("REDIS_PASSWORD", ""),
			DB:       utils.EnvInt("REDIS_DB", 0),
		},
		PageCacheTTL: utils.EnvDuration("PAGE_CACHE_TTL", 5*time.Minute),

		ErrorStatusCompat: utils.EnvBool("ERROR_STATUS_COMPAT", true),
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.DefaultLimit <= 0 || c.MaxLimit <= 0 {
		return fmt.Errorf("DEFAULT_LIMIT and MAX_LIMIT must be positive")
	}
	if c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("DEFAULT_LIMIT %d exceeds MAX_LIMIT %d", c.DefaultLimit, c.MaxLimit)
	}
	if _, err := c.Hypersync.Endpoint(1); err != nil {
		return fmt.Errorf("HYPERSYNC_URL_TEMPLATE: %w", err)
	}
	if c.HeightWorkers <= 0 {
		return fmt.Errorf("HEIGHT_WORKERS must be positive")
	}
	return nil
}
