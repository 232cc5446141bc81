// Package cache is a JSON read-through cache over Redis. A nil *Cache or a
// failing Redis never blocks a read: the loader is called directly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/common/metrics"
)

type Cache struct {
	client redis.Cmdable
	prefix string
	logger logger.Logger
}

func New(client redis.Cmdable, prefix string, log logger.Logger) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "cache"}),
	}
}

// Key prefixes the given parts with the cache namespace.
func (c *Cache) Key(name string) string {
	if c == nil {
		return name
	}
	return c.prefix + name
}

// Remember returns the cached value for name or calls load and stores its
// result for ttl.
func Remember[T any](ctx context.Context, c *Cache, name string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.client == nil || ttl <= 0 {
		return load(ctx)
	}

	key := c.Key(name)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			metrics.CacheRequests.WithLabelValues("hit").Inc()
			return cached, nil
		}
		c.logger.Warn("discarding undecodable cache entry", map[string]interface{}{"key": key})
	} else if !errors.Is(err, redis.Nil) {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return value, nil
}

// Invalidate drops the named entries.
func (c *Cache) Invalidate(ctx context.Context, names ...string) error {
	if c == nil || c.client == nil || len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = c.Key(n)
	}
	return c.client.Del(ctx, keys...).Err()
}

// Entry names shared by the readers that fill them and the writers that
// invalidate them.
const (
	KeyApplicationStats   = "application-stats"
	KeyGrowthMetrics      = "growth-metrics"
	KeySectorDistribution = "sector-distribution"
	KeyInvestmentStages   = "investment-stages"
	KeyMonthlyStats       = "monthly-stats"
)
