package query

import (
	"context"

	"github.com/canopy-network/addrhistory/app/query/types"
	"github.com/canopy-network/addrhistory/pkg/chains"
	"github.com/canopy-network/addrhistory/pkg/hypersync"
	"github.com/canopy-network/addrhistory/pkg/logging"
	"github.com/canopy-network/addrhistory/pkg/pagination"
	"github.com/canopy-network/addrhistory/pkg/redis"
	"github.com/canopy-network/addrhistory/pkg/retry"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	cfg, cfgErr := LoadConfig()

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}
	if cfgErr != nil {
		logger.Fatal("Invalid configuration", zap.Error(cfgErr))
	}
	if cfg.Hypersync.BearerToken == "" {
		logger.Warn("ENVIO_HYPERSYNC_API_KEY is not set, indexer requests are unauthenticated")
	}

	registry, err := chains.Load(cfg.ChainsFile)
	if err != nil {
		logger.Fatal("Unable to load chain registry", zap.Error(err))
	}

	// Unregistered chain ids collapse into one label and one limiter.
	cfg.Hypersync.ChainLabel = registry.Label
	limiters := hypersync.NewLimiters(cfg.RPS, cfg.Burst)
	sources := pagination.HypersyncSources(cfg.Hypersync, limiters)

	tracker := chains.NewTracker(registry, func(ctx context.Context, chainID uint64) (uint64, error) {
		client, err := hypersync.NewClient(cfg.Hypersync, chainID, limiters.For(cfg.Hypersync.Label(chainID)))
		if err != nil {
			return 0, err
		}
		return client.Height(ctx)
	}, cfg.HeightWorkers, logger)

	app := &types.App{
		Engine:            pagination.NewEngine(sources, registry.Label, logger),
		Registry:          registry,
		Tracker:           tracker,
		HeightRefreshCron: cfg.HeightRefreshCron,
		Limits:            types.Limits{Default: cfg.DefaultLimit, Max: cfg.MaxLimit},
		ErrorStatusCompat: cfg.ErrorStatusCompat,
		Logger:            logger,
	}

	// Page cache (optional)
	if cfg.RedisEnabled {
		var redisClient *redis.Client
		err := retry.Do(ctx, retry.StartupConfig(), logger, "connect redis", func(ctx context.Context) error {
			c, err := redis.NewClient(ctx, cfg.Redis, logger)
			if err != nil {
				return err
			}
			redisClient = c
			return nil
		})
		if err != nil {
			logger.Warn("Failed to initialize Redis client - page cache will be disabled", zap.Error(err))
		} else {
			app.RedisClient = redisClient
			app.Cache = redis.NewPageCache(redisClient, cfg.PageCacheTTL)
			logger.Info("Page cache enabled", zap.Duration("ttl", cfg.PageCacheTTL))
		}
	} else {
		logger.Info("Redis disabled - page cache will not be available")
	}

	logger.Info("Initialized",
		zap.String("indexer", cfg.Hypersync.URLTemplate),
		zap.Int("chains", len(registry.All())),
		zap.Float64("rps", cfg.RPS),
		zap.Int("default_limit", cfg.DefaultLimit),
		zap.Int("max_limit", cfg.MaxLimit),
		zap.Bool("error_status_compat", cfg.ErrorStatusCompat),
	)
	return app
}
