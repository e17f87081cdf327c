package types

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/canopy-network/addrhistory/pkg/chains"
	"github.com/canopy-network/addrhistory/pkg/pagination"
	"github.com/canopy-network/addrhistory/pkg/redis"
	"go.uber.org/zap"
)

// PageCache is the read-through cache of historical pages. Nil when disabled.
type PageCache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Health(ctx context.Context) error
}

// Limits bounds the page size accepted from callers.
type Limits struct {
	Default int
	Max     int
}

type App struct {
	Engine   *pagination.Engine
	Registry *chains.Registry
	Tracker  *chains.Tracker
	// HeightRefreshCron schedules Tracker refreshes (seconds field included).
	HeightRefreshCron string

	Cache       PageCache
	RedisClient *redis.Client

	Limits Limits
	// ErrorStatusCompat answers failed pages with 200 and the degraded body.
	ErrorStatusCompat bool

	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application and blocks until ctx is done.
func (a *App) Start(ctx context.Context) {
	if a.Tracker != nil {
		if err := a.Tracker.Start(ctx, a.HeightRefreshCron); err != nil {
			a.Logger.Error("Failed to start height tracker", zap.Error(err))
		}
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("Server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.Server.Shutdown(shutdownCtx)

	if a.Tracker != nil {
		a.Tracker.Stop()
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
