package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Page engine and remote indexer collectors, partitioned by chain id.

var (
	// Remote indexer
	IndexerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addrhistory",
		Subsystem: "indexer",
		Name:      "requests_total",
		Help:      "Total requests sent to the remote indexer",
	}, []string{"chain", "path", "status"})

	IndexerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "addrhistory",
		Subsystem: "indexer",
		Name:      "request_duration_seconds",
		Help:      "Remote indexer request duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"chain", "path"})

	IndexerRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addrhistory",
		Subsystem: "indexer",
		Name:      "rate_limit_waits_total",
		Help:      "Requests that had to wait for the per-chain rate limiter",
	}, []string{"chain"})

	// Pagination engine
	StreamBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addrhistory",
		Subsystem: "pages",
		Name:      "batches_total",
		Help:      "Stream batches consumed while assembling pages",
	}, []string{"kind", "chain"})

	PageRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addrhistory",
		Subsystem: "pages",
		Name:      "records_total",
		Help:      "Records returned in pages",
	}, []string{"kind", "chain"})

	Pages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addrhistory",
		Subsystem: "pages",
		Name:      "served_total",
		Help:      "Pages served by outcome (ok, error, cached, invalid)",
	}, []string{"kind", "chain", "outcome"})

	PageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "addrhistory",
		Subsystem: "pages",
		Name:      "duration_seconds",
		Help:      "Time to assemble one page",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"kind", "chain"})

	// Page cache
	PageCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addrhistory",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Page cache operations by result (hit, miss, store, error)",
	}, []string{"result"})

	// Chains
	ChainArchiveHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "addrhistory",
		Subsystem: "chains",
		Name:      "archive_height",
		Help:      "Last archive height reported by the remote indexer",
	}, []string{"chain"})

	ChainHeightErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addrhistory",
		Subsystem: "chains",
		Name:      "height_refresh_errors_total",
		Help:      "Failed archive height refreshes",
	}, []string{"chain"})
)
