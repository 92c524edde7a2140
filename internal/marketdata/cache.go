package marketdata

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"trading-enginev1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// PriceCache stores the latest price per symbol with its observation time.
// Reads are staleness-checked; a stale value is still retrievable as an
// explicit fallback.
type PriceCache interface {
	// Get returns the cached price if it is younger than maxAge.
	Get(ctx context.Context, symbol string, maxAge time.Duration) (float64, bool)

	// GetStale returns the cached price regardless of age, with its
	// observation time.
	GetStale(ctx context.Context, symbol string) (float64, time.Time, bool)

	// Set records a fresh observation.
	Set(ctx context.Context, symbol string, price float64)
}

// MemoryCache is the in-process cache used when Redis is not configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	price float64
	at    time.Time
}

// NewMemoryCache creates an empty in-process price cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, symbol string, maxAge time.Duration) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[symbol]
	if !ok || time.Since(e.at) > maxAge {
		return 0, false
	}
	return e.price, true
}

func (c *MemoryCache) GetStale(ctx context.Context, symbol string) (float64, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[symbol]
	if !ok {
		return 0, time.Time{}, false
	}
	return e.price, e.at, true
}

func (c *MemoryCache) Set(ctx context.Context, symbol string, price float64) {
	c.mu.Lock()
	c.entries[symbol] = memEntry{price: price, at: time.Now()}
	c.mu.Unlock()
}

// RedisCache shares the latest price across processes via TTL'd keys:
// "price:latest:<symbol>" holds the price, "price:at:<symbol>" the
// observation time.
type RedisCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache and pings the server.
// ttl bounds how long even a "stale" value survives.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	log.Printf("[marketdata] redis price cache connected to %s", addr)
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, symbol string, maxAge time.Duration) (float64, bool) {
	price, at, ok := c.GetStale(ctx, symbol)
	if !ok || time.Since(at) > maxAge {
		return 0, false
	}
	return price, true
}

func (c *RedisCache) GetStale(ctx context.Context, symbol string) (float64, time.Time, bool) {
	vals, err := c.client.MGet(ctx, "price:latest:"+symbol, "price:at:"+symbol).Result()
	if err != nil || len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return 0, time.Time{}, false
	}
	price, err1 := strconv.ParseFloat(vals[0].(string), 64)
	atUnix, err2 := strconv.ParseInt(vals[1].(string), 10, 64)
	if err1 != nil || err2 != nil {
		return 0, time.Time{}, false
	}
	return price, time.Unix(atUnix, 0), true
}

func (c *RedisCache) Set(ctx context.Context, symbol string, price float64) {
	pipe := c.client.Pipeline()
	pipe.Set(ctx, "price:latest:"+symbol, strconv.FormatFloat(price, 'f', -1, 64), c.ttl)
	pipe.Set(ctx, "price:at:"+symbol, strconv.FormatInt(time.Now().Unix(), 10), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[marketdata] redis cache write failed: %v", err)
	}
}

// CachedSource wraps a Source with the price cache: fresh cache hits skip the
// provider entirely, and when the live fetch fails after retries the stale
// cached value is served as a deliberate fallback.
type CachedSource struct {
	src    Source
	cache  PriceCache
	maxAge time.Duration
}

// NewCachedSource wraps src. maxAge is the freshness window for cache hits.
func NewCachedSource(src Source, cache PriceCache, maxAge time.Duration) *CachedSource {
	if maxAge <= 0 {
		maxAge = 3 * time.Minute
	}
	return &CachedSource{src: src, cache: cache, maxAge: maxAge}
}

func (s *CachedSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	if price, ok := s.cache.Get(ctx, symbol, s.maxAge); ok {
		return price, nil
	}

	price, err := s.src.LatestPrice(ctx, symbol)
	if err == nil {
		s.cache.Set(ctx, symbol, price)
		return price, nil
	}

	if stale, at, ok := s.cache.GetStale(ctx, symbol); ok {
		log.Printf("[marketdata] live fetch failed (%v), serving stale price from %s", err, at.UTC().Format(time.RFC3339))
		return stale, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrNoPrice, err)
}

func (s *CachedSource) Candles(ctx context.Context, symbol, interval string, size int) ([]model.Candle, error) {
	return s.src.Candles(ctx, symbol, interval, size)
}
