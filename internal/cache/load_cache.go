// Package cache keeps a short-lived Redis copy of per-technician ticket loads.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultLoadKey = "helpdesk:technician_loads"
	// presenceField marks a populated snapshot so an all-idle pool still hits.
	presenceField = "_"
)

// LoadSource computes authoritative loads.
type LoadSource interface {
	ActiveLoads(ctx context.Context) (map[int64]int, error)
}

// LoadCache serves technician loads from Redis, recomputing after the TTL.
// Readers tolerate a stale snapshot; Redis failures fall back to the source.
type LoadCache struct {
	client *redis.Client
	source LoadSource
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewLoadCache builds the cache. A nil client disables caching.
func NewLoadCache(client *redis.Client, source LoadSource, ttl time.Duration, logger *zap.Logger) *LoadCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoadCache{
		client: client,
		source: source,
		key:    DefaultLoadKey,
		ttl:    ttl,
		logger: logger,
	}
}

// Loads returns open-ticket counts per technician.
func (c *LoadCache) Loads(ctx context.Context) (map[int64]int, error) {
	if c.client == nil || c.ttl <= 0 {
		return c.source.ActiveLoads(ctx)
	}

	cached, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		c.logger.Warn("technician load cache read failed", zap.Error(err))
		return c.source.ActiveLoads(ctx)
	}
	if _, ok := cached[presenceField]; ok {
		return decodeLoads(cached), nil
	}

	loads, err := c.source.ActiveLoads(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, loads)
	return loads, nil
}

// Invalidate drops the snapshot so the next read recomputes it.
func (c *LoadCache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key).Err()
}

func (c *LoadCache) store(ctx context.Context, loads map[int64]int) {
	fields := make(map[string]any, len(loads)+1)
	fields[presenceField] = "1"
	for id, n := range loads {
		fields[strconv.FormatInt(id, 10)] = n
	}
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.key)
	pipe.HSet(ctx, c.key, fields)
	pipe.Expire(ctx, c.key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("technician load cache write failed", zap.Error(err))
	}
}

func decodeLoads(fields map[string]string) map[int64]int {
	loads := make(map[int64]int, len(fields))
	for k, v := range fields {
		if k == presenceField {
			continue
		}
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		loads[id] = n
	}
	return loads
}
