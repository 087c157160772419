package cache

import (
	"fmt"
	"sync"
	"time"

	"AxPredict/internal/domain/models"
)

// CandleCache is a process-wide TTL cache for fetched candle series. Entries
// expire after a fixed TTL and are evicted lazily on Get; there is no
// background sweeper and no capacity bound. Key cardinality is bounded by
// (symbol x timeframe x source) combinations in practice.
//
// Concurrent identical fetches within the TTL window may each populate the
// same key. That race is harmless: values are idempotent derivations of the
// same upstream state at nearly the same time.
type CandleCache struct {
	ttl time.Duration
	now func() time.Time

	mu sync.RWMutex
	m  map[string]entry

	l2 *RedisCache // optional second level, nil when disabled
}

type entry struct {
	candles   []models.Candle
	fetchedAt time.Time
}

// Option configures a CandleCache.
type Option func(*CandleCache)

// WithClock injects a time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *CandleCache) { c.now = now }
}

// WithRedisL2 attaches a Redis second level.
func WithRedisL2(l2 *RedisCache) Option {
	return func(c *CandleCache) { c.l2 = l2 }
}

// New creates a candle cache with the given TTL.
func New(ttl time.Duration, opts ...Option) *CandleCache {
	c := &CandleCache{
		ttl: ttl,
		now: time.Now,
		m:   make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the composite cache key for one upstream fetch.
func Key(source, symbol, interval string, limit int) string {
	return fmt.Sprintf("%s::%s::%s::%d", source, symbol, interval, limit)
}

// Get returns the cached series for key, or (nil, false) when the key was
// never set or its age exceeds the TTL. Stale entries are removed on read.
func (c *CandleCache) Get(key string) ([]models.Candle, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if ok {
		if c.now().Sub(e.fetchedAt) <= c.ttl {
			return e.candles, true
		}
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
	}

	if c.l2 != nil {
		if candles, ok := c.l2.Get(key); ok {
			c.set(key, candles)
			return candles, true
		}
	}
	return nil, false
}

// Set stores a series under key with the current fetch time.
func (c *CandleCache) Set(key string, candles []models.Candle) {
	c.set(key, candles)
	if c.l2 != nil {
		c.l2.Set(key, candles, c.ttl)
	}
}

func (c *CandleCache) set(key string, candles []models.Candle) {
	c.mu.Lock()
	c.m[key] = entry{candles: candles, fetchedAt: c.now()}
	c.mu.Unlock()
}
