package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	m.values[key] = string(value.([]byte))
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *memStore) Ping(_ context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", m.err)
}

type cachedPage struct {
	Items  []string `json:"items"`
	Cursor int64    `json:"cursor"`
}

func TestPageCache_RoundTrip(t *testing.T) {
	mem := newMemStore()
	cache := &PageCache{store: mem, ttl: time.Minute, logger: zap.NewNop()}
	ctx := context.Background()
	key := PageKey("logs", 1, "0xAbC", 100, 50, "desc")

	var out cachedPage
	found, err := cache.Get(ctx, key, &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, key, cachedPage{Items: []string{"a", "b"}, Cursor: 41}))
	assert.Equal(t, time.Minute, mem.ttls[key])

	found, err = cache.Get(ctx, key, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedPage{Items: []string{"a", "b"}, Cursor: 41}, out)

	assert.NoError(t, cache.Health(ctx))
}

func TestPageCache_Errors(t *testing.T) {
	mem := newMemStore()
	cache := &PageCache{store: mem, ttl: time.Minute, logger: zap.NewNop()}
	ctx := context.Background()

	mem.values["broken"] = "{not json"
	var out cachedPage
	found, err := cache.Get(ctx, "broken", &out)
	assert.Error(t, err)
	assert.False(t, found)

	mem.err = errors.New("connection refused")
	_, err = cache.Get(ctx, "k", &out)
	assert.ErrorContains(t, err, "connection refused")
	assert.Error(t, cache.Set(ctx, "k", cachedPage{}))
	assert.Error(t, cache.Health(ctx))
}

func TestPageKey(t *testing.T) {
	assert.Equal(t, "addrhistory:page:transactions:8453:0xabc:desc:100:25",
		PageKey("transactions", 8453, "0xABC", 100, 25, "desc"))
	assert.NotEqual(t, PageKey("logs", 1, "0xa", 1, 25, "desc"), PageKey("logs", 1, "0xa", 1, 26, "desc"))
}

func TestConfigAddr(t *testing.T) {
	assert.Equal(t, "localhost:6379", Config{Host: "localhost", Port: "6379"}.Addr())
}
