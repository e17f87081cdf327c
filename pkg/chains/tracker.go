package chains

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/addrhistory/pkg/metrics"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// HeightFunc returns the archive height the indexer reports for a chain.
type HeightFunc func(ctx context.Context, chainID uint64) (uint64, error)

// Tracker keeps the last known archive height of every registered chain.
// Heights only move forward.
type Tracker struct {
	registry *Registry
	fetch    HeightFunc
	workers  int
	timeout  time.Duration
	heights  *xsync.Map[uint64, uint64]
	logger   *zap.Logger

	cron *cron.Cron
}

func NewTracker(registry *Registry, fetch HeightFunc, workers int, logger *zap.Logger) *Tracker {
	if workers <= 0 {
		workers = 1
	}
	return &Tracker{
		registry: registry,
		fetch:    fetch,
		workers:  workers,
		timeout:  10 * time.Second,
		heights:  xsync.NewMap[uint64, uint64](),
		logger:   logger,
	}
}

// Height returns the last known archive height of chainID.
func (t *Tracker) Height(chainID uint64) (uint64, bool) {
	return t.heights.Load(chainID)
}

// Observe records a height seen elsewhere, e.g. on a page response. Lower
// values than the one already known are ignored, as are unregistered chains.
func (t *Tracker) Observe(chainID, height uint64) {
	if _, ok := t.registry.Lookup(chainID); !ok {
		return
	}
	t.heights.Compute(chainID, func(old uint64, loaded bool) (uint64, xsync.ComputeOp) {
		if loaded && old >= height {
			return old, xsync.CancelOp
		}
		return height, xsync.UpdateOp
	})
	metrics.ChainArchiveHeight.WithLabelValues(t.registry.Label(chainID)).Set(float64(t.heightOr(chainID)))
}

func (t *Tracker) heightOr(chainID uint64) uint64 {
	h, _ := t.heights.Load(chainID)
	return h
}

// Refresh asks the indexer for the height of every registered chain, with at
// most workers requests in flight. Failures are logged and counted.
func (t *Tracker) Refresh(ctx context.Context) {
	chains := t.registry.All()
	if len(chains) == 0 {
		return
	}

	pool := pond.NewPool(t.workers, pond.WithQueueSize(len(chains)))
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, c := range chains {
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			fetchCtx, cancel := context.WithTimeout(groupCtx, t.timeout)
			defer cancel()

			height, err := t.fetch(fetchCtx, c.ID)
			if err != nil {
				metrics.ChainHeightErrors.WithLabelValues(strconv.FormatUint(c.ID, 10)).Inc()
				t.logger.Warn("archive height refresh failed",
					zap.Uint64("chain_id", c.ID),
					zap.String("chain", c.Name),
					zap.Error(err))
				return
			}
			t.Observe(c.ID, height)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		t.logger.Warn("some height refreshes failed", zap.Error(err))
	}
}

// Start runs one refresh right away and then on every tick of spec (with seconds).
func (t *Tracker) Start(ctx context.Context, spec string) error {
	t.cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLogger{t.logger})))
	if _, err := t.cron.AddFunc(spec, func() { t.Refresh(ctx) }); err != nil {
		return err
	}
	go t.Refresh(ctx)
	t.cron.Start()
	t.logger.Info("height tracker started", zap.String("cronSpec", spec), zap.Int("chains", len(t.registry.All())))
	return nil
}

// Stop halts the schedule and waits for a running refresh.
func (t *Tracker) Stop() {
	if t.cron != nil {
		<-t.cron.Stop().Done()
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
