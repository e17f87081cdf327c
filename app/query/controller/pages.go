package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/canopy-network/addrhistory/pkg/metrics"
	"github.com/canopy-network/addrhistory/pkg/pagination"
	"github.com/canopy-network/addrhistory/pkg/redis"
	"go.uber.org/zap"
)

type transactionsResponse struct {
	Transactions []pagination.Transaction `json:"transactions"`
	Pagination   pagination.Pagination    `json:"pagination"`
	Error        string                   `json:"error,omitempty"`
}

type logsResponse struct {
	Logs       []pagination.Log      `json:"logs"`
	Pagination pagination.Pagination `json:"pagination"`
	Error      string                `json:"error,omitempty"`
}

// HandleTransactions returns one page of transactions sent from or to an address.
func (c *Controller) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	servePage(c, w, r, pagination.Transactions.Name, c.App.Engine.Transactions,
		func(records []pagination.Transaction, p pagination.Pagination, errMsg string) transactionsResponse {
			return transactionsResponse{Transactions: records, Pagination: p, Error: errMsg}
		})
}

// HandleLogs returns one page of logs emitted by an address.
func (c *Controller) HandleLogs(w http.ResponseWriter, r *http.Request) {
	servePage(c, w, r, pagination.Logs.Name, c.App.Engine.Logs,
		func(records []pagination.Log, p pagination.Pagination, errMsg string) logsResponse {
			return logsResponse{Logs: records, Pagination: p, Error: errMsg}
		})
}

type fetchFunc[R pagination.Record] func(ctx context.Context, req pagination.Request) (*pagination.Page[R], error)

// servePage is the single boundary where engine errors become the degraded body:
// no records, cursor -1, height null and the error text. Records gathered before
// a failure are discarded.
func servePage[R pagination.Record, B any](
	c *Controller,
	w http.ResponseWriter,
	r *http.Request,
	kind string,
	fetch fetchFunc[R],
	body func([]R, pagination.Pagination, string) B,
) {
	ctx := r.Context()
	logger := c.App.Logger.With(zap.String("kind", kind), zap.String("request_id", requestID(ctx)))
	degraded := func(status int, err error) {
		writeJSON(w, status, body([]R{}, pagination.Pagination{Cursor: pagination.NoCursor}, err.Error()))
	}

	req, err := parsePageRequest(r, c.App.Limits)
	if err != nil {
		metrics.Pages.WithLabelValues(kind, c.chainLabel(r), "invalid").Inc()
		degraded(http.StatusBadRequest, err)
		return
	}
	chain := c.App.Registry.Label(req.ChainID)

	key, cacheable := c.cacheKey(kind, req)
	if cacheable {
		var cached B
		found, err := c.App.Cache.Get(ctx, key, &cached)
		if err != nil {
			logger.Warn("page cache read failed", zap.String("key", key), zap.Error(err))
		}
		if found {
			metrics.Pages.WithLabelValues(kind, chain, "cached").Inc()
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	page, err := fetch(ctx, req)
	if err != nil {
		logger.Warn("page failed",
			zap.Uint64("chain_id", req.ChainID),
			zap.String("chain", c.App.Registry.Name(req.ChainID)),
			zap.Stringer("address", req.Address),
			zap.String("sort", string(req.Sort)),
			zap.Int("limit", req.Limit),
			zap.Error(err))
		degraded(c.failureStatus(err), err)
		return
	}

	if page.Pagination.Height != nil && c.App.Tracker != nil {
		c.App.Tracker.Observe(req.ChainID, *page.Pagination.Height)
	}

	out := body(page.Records, page.Pagination, "")
	if cacheable {
		if err := c.App.Cache.Set(ctx, key, out); err != nil {
			logger.Warn("page cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// cacheKey reports whether req addresses a settled range: a descending page below
// a cursor the indexer has already passed.
func (c *Controller) cacheKey(kind string, req pagination.Request) (string, bool) {
	if c.App.Cache == nil || c.App.Tracker == nil || req.Sort != pagination.SortDesc || req.Cursor == nil {
		return "", false
	}
	height, ok := c.App.Tracker.Height(req.ChainID)
	if !ok || *req.Cursor > height {
		return "", false
	}
	return redis.PageKey(kind, req.ChainID, req.Address.Hex(), *req.Cursor, req.Limit, string(req.Sort)), true
}

func (c *Controller) failureStatus(err error) int {
	switch {
	case errors.Is(err, pagination.ErrInvalidRequest):
		return http.StatusBadRequest
	case c.App.ErrorStatusCompat:
		return http.StatusOK
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// chainLabel labels a request that failed validation.
func (c *Controller) chainLabel(r *http.Request) string {
	id, err := strconv.ParseUint(r.URL.Query().Get("chain"), 10, 64)
	if err != nil {
		return "invalid"
	}
	return c.App.Registry.Label(id)
}
