package pagination

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/canopy-network/addrhistory/pkg/hypersync"
	"github.com/canopy-network/addrhistory/pkg/metrics"
	"go.uber.org/zap"
)

// Source opens a stream for one query.
type Source interface {
	Open(ctx context.Context, q hypersync.Query, cfg hypersync.StreamConfig) (Batches, error)
}

// SourceFactory returns the Source serving chainID.
type SourceFactory func(chainID uint64) (Source, error)

// HypersyncSources builds a fresh indexer client per request, sharing the
// limiter of the chain's label.
func HypersyncSources(cfg hypersync.Config, limiters *hypersync.Limiters) SourceFactory {
	return func(chainID uint64) (Source, error) {
		client, err := hypersync.NewClient(cfg, chainID, limiters.For(cfg.Label(chainID)))
		if err != nil {
			return nil, err
		}
		return clientSource{client: client}, nil
	}
}

type clientSource struct {
	client *hypersync.Client
}

func (s clientSource) Open(ctx context.Context, q hypersync.Query, cfg hypersync.StreamConfig) (Batches, error) {
	r, err := s.client.Stream(ctx, q, cfg)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Fetch builds one page: query, stream, consume, cursor.
func Fetch[R Record](ctx context.Context, src Source, kind Kind[R], req Request) (*Page[R], error) {
	batches, err := src.Open(ctx, BuildQuery(kind, req), StreamConfigFor(kind, req))
	if err != nil {
		return nil, fmt.Errorf("open %s stream: %w", kind.Name, err)
	}
	res, err := Consume(ctx, batches, kind, req.Limit)
	if err != nil {
		return nil, err
	}
	return &Page[R]{
		Records: res.Records,
		Pagination: Pagination{
			Cursor: NextCursor(res.Records, req.Limit),
			Height: res.Height,
		},
		Batches: res.Batches,
	}, nil
}

// Engine serves pages of both record kinds.
type Engine struct {
	sources SourceFactory
	label   func(chainID uint64) string
	logger  *zap.Logger
}

// NewEngine returns an engine labelling its metrics with label. A nil label uses
// the decimal chain id.
func NewEngine(sources SourceFactory, label func(chainID uint64) string, logger *zap.Logger) *Engine {
	if label == nil {
		label = func(chainID uint64) string { return strconv.FormatUint(chainID, 10) }
	}
	return &Engine{sources: sources, label: label, logger: logger}
}

func (e *Engine) Transactions(ctx context.Context, req Request) (*Page[Transaction], error) {
	return run(ctx, e, Transactions, req)
}

func (e *Engine) Logs(ctx context.Context, req Request) (*Page[Log], error) {
	return run(ctx, e, Logs, req)
}

func run[R Record](ctx context.Context, e *Engine, kind Kind[R], req Request) (*Page[R], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	chain := e.label(req.ChainID)
	start := time.Now()

	src, err := e.sources(req.ChainID)
	if err != nil {
		return nil, fmt.Errorf("resolve source for chain %d: %w", req.ChainID, err)
	}

	page, err := Fetch(ctx, src, kind, req)
	metrics.PageLatency.WithLabelValues(kind.Name, chain).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Pages.WithLabelValues(kind.Name, chain, "error").Inc()
		return nil, err
	}

	metrics.Pages.WithLabelValues(kind.Name, chain, "ok").Inc()
	metrics.PageRecords.WithLabelValues(kind.Name, chain).Add(float64(len(page.Records)))
	metrics.StreamBatches.WithLabelValues(kind.Name, chain).Add(float64(page.Batches))

	e.logger.Debug("page assembled",
		zap.String("kind", kind.Name),
		zap.Uint64("chain_id", req.ChainID),
		zap.Stringer("address", req.Address),
		zap.String("sort", string(req.Sort)),
		zap.Int("limit", req.Limit),
		zap.Int("records", len(page.Records)),
		zap.Int("batches", page.Batches),
		zap.Int64("cursor", page.Pagination.Cursor),
		zap.Duration("elapsed", time.Since(start)),
	)
	return page, nil
}
