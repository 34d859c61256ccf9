package redis

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/cartsession/core/logger"
)

// defaultKeyPrefix namespaces session entries within a shared Redis.
const defaultKeyPrefix = "cartsession:"

// Cache implements session.Cache on Redis. Every failure path degrades to a
// miss so an unavailable cache never blocks or fails a request.
type Cache struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	scanBatch int64
	log       *slog.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) CacheOption {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithTTL bounds how long a warmed entry may live. Zero means entries live
// until invalidated or flushed.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithScanBatchSize sets the SCAN page size used by FlushAll.
func WithScanBatchSize(n int64) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.scanBatch = n
		}
	}
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(log *slog.Logger) CacheOption {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCache creates a session cache over client.
func NewCache(client *redis.Client, opts ...CacheOption) *Cache {
	c := &Cache{
		client:    client,
		prefix:    defaultKeyPrefix,
		scanBatch: 1000,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements session.Cache. Backend errors and undecodable entries are
// reported as misses.
func (c *Cache) Get(ctx context.Context, customerID string) (map[string]any, bool) {
	raw, err := c.client.Get(ctx, c.key(customerID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.DebugContext(ctx, "session cache read failed, treating as miss",
				logger.CustomerID(customerID), logger.Error(err))
		}
		return nil, false
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		c.log.DebugContext(ctx, "undecodable session cache entry, treating as miss",
			logger.CustomerID(customerID), logger.Error(err))
		return nil, false
	}
	return data, true
}

// Put implements session.Cache. Called by hosts warming the cache, never by
// the session read path.
func (c *Cache) Put(ctx context.Context, customerID string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(customerID), raw, c.ttl).Err()
}

// Invalidate implements session.Cache.
func (c *Cache) Invalidate(ctx context.Context, customerID string) error {
	return c.client.Del(ctx, c.key(customerID)).Err()
}

// FlushAll implements session.Cache, deleting every key under the session
// prefix with a cursor scan. Other tenants of the Redis are untouched.
func (c *Cache) FlushAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", c.scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *Cache) key(customerID string) string {
	return c.prefix + customerID
}
