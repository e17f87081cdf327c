package hypersync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/canopy-network/addrhistory/pkg/metrics"
	"github.com/canopy-network/addrhistory/pkg/utils"
	"golang.org/x/time/rate"
)

const (
	queryPath  = "/query"
	heightPath = "/height"

	chainPlaceholder = "{chain}"

	defaultReverseStep    = 10_000
	defaultReverseMaxStep = 1_000_000
)

// Config describes how to reach the indexer for any chain. It is built once at
// startup and shared; clients are created per request from it.
type Config struct {
	// URLTemplate contains "{chain}", replaced by the numeric chain id.
	URLTemplate string
	// BearerToken is sent as "Authorization: Bearer <token>" when non-empty.
	BearerToken string
	// ReverseStep is the initial block window of a reverse stream.
	ReverseStep uint64
	// ReverseMaxStep caps window growth over sparse ranges.
	ReverseMaxStep uint64
	// HTTPClient defaults to NewHTTPClient().
	HTTPClient *http.Client
	// ChainLabel names a chain in metrics and limiter keys. Nil uses the decimal id.
	ChainLabel func(chainID uint64) string
}

// Label returns the metric label of chainID.
func (c Config) Label(chainID uint64) string {
	if c.ChainLabel == nil {
		return strconv.FormatUint(chainID, 10)
	}
	return c.ChainLabel(chainID)
}

// Endpoint returns the base URL for chainID.
func (c Config) Endpoint(chainID uint64) (string, error) {
	if !strings.Contains(c.URLTemplate, chainPlaceholder) {
		return "", fmt.Errorf("indexer url template %q has no %s placeholder", c.URLTemplate, chainPlaceholder)
	}
	ep := strings.ReplaceAll(c.URLTemplate, chainPlaceholder, strconv.FormatUint(chainID, 10))
	return strings.TrimRight(ep, "/"), nil
}

// NewHTTPClient returns a client without an overall timeout: a stream request may
// legitimately run for minutes on a large range. Only connection setup is bounded.
func NewHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.MaxIdleConnsPerHost = 16
	return &http.Client{Transport: transport}
}

// HTTPError is a non-2xx answer from the indexer.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("indexer http %d", e.StatusCode)
	}
	return fmt.Sprintf("indexer http %d: %s", e.StatusCode, e.Body)
}

// Client talks to the indexer of a single chain.
type Client struct {
	endpoint       string
	chain          string
	token          string
	client         *http.Client
	limiter        *rate.Limiter
	reverseStep    uint64
	reverseMaxStep uint64
}

// NewClient creates a client for chainID. limiter may be nil (no outbound limit).
func NewClient(cfg Config, chainID uint64, limiter *rate.Limiter) (*Client, error) {
	ep, err := cfg.Endpoint(chainID)
	if err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = NewHTTPClient()
	}
	step := cfg.ReverseStep
	if step == 0 {
		step = defaultReverseStep
	}
	maxStep := cfg.ReverseMaxStep
	if maxStep < step {
		maxStep = defaultReverseMaxStep
		if maxStep < step {
			maxStep = step
		}
	}

	return &Client{
		endpoint:       ep,
		chain:          cfg.Label(chainID),
		token:          cfg.BearerToken,
		client:         client,
		limiter:        limiter,
		reverseStep:    step,
		reverseMaxStep: maxStep,
	}, nil
}

// Height returns the indexer's archive height.
func (c *Client) Height(ctx context.Context) (uint64, error) {
	var out heightResponse
	if err := c.doJSON(ctx, http.MethodGet, heightPath, nil, &out); err != nil {
		return 0, err
	}
	if out.Height == nil {
		return 0, errors.New("indexer returned no height")
	}
	return *out.Height, nil
}

// Query runs a single range query. The indexer may stop early; Response.NextBlock
// tells where to continue.
func (c *Client) Query(ctx context.Context, q Query) (*Response, error) {
	var out Response
	if err := c.doJSON(ctx, http.MethodPost, queryPath, q.wire(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// wait blocks on the per-chain limiter, counting the requests that had to queue.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	r := c.limiter.Reserve()
	if !r.OK() {
		return errors.New("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	metrics.IndexerRateLimitWaits.WithLabelValues(c.chain).Inc()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// doJSON sends payload (if any) as JSON and decodes a 2xx body into out.
func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.IndexerLatency.WithLabelValues(c.chain, path).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IndexerRequests.WithLabelValues(c.chain, path, "error").Inc()
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	metrics.IndexerRequests.WithLabelValues(c.chain, path, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{StatusCode: resp.StatusCode, Body: utils.Snippet(snippet, 256)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
