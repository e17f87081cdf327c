package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/canopy-network/addrhistory/pkg/metrics"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "addrhistory:page"

// store is the subset of redis.Cmdable the cache needs.
type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// PageCache stores serialized pages under a TTL. Values are JSON.
type PageCache struct {
	store  store
	ttl    time.Duration
	logger *zap.Logger
}

// NewPageCache builds a cache on top of an open client.
func NewPageCache(c *Client, ttl time.Duration) *PageCache {
	return &PageCache{store: c.client, ttl: ttl, logger: c.logger}
}

// PageKey identifies one page. Every field that shapes the page is part of the key.
func PageKey(kind string, chainID uint64, address string, cursor uint64, limit int, sort string) string {
	return strings.Join([]string{
		keyPrefix,
		kind,
		strconv.FormatUint(chainID, 10),
		strings.ToLower(address),
		sort,
		strconv.FormatUint(cursor, 10),
		strconv.Itoa(limit),
	}, ":")
}

// Get decodes the page stored at key into out. It reports false on a miss.
func (p *PageCache) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := p.store.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.PageCache.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		metrics.PageCache.WithLabelValues("error").Inc()
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		metrics.PageCache.WithLabelValues("error").Inc()
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	metrics.PageCache.WithLabelValues("hit").Inc()
	return true, nil
}

// Set stores v at key with the cache TTL.
func (p *PageCache) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := p.store.Set(ctx, key, raw, p.ttl).Err(); err != nil {
		metrics.PageCache.WithLabelValues("error").Inc()
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	metrics.PageCache.WithLabelValues("store").Inc()
	p.logger.Debug("page cached", zap.String("key", key), zap.Duration("ttl", p.ttl))
	return nil
}

// Health pings the backing store.
func (p *PageCache) Health(ctx context.Context) error {
	return p.store.Ping(ctx).Err()
}
