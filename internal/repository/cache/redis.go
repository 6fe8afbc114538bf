package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/metrics"
)

type RedisCache struct {
	client    *redis.Client
	retention time.Duration
	logger    logger.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Retention is added to the tile expiration to get the key TTL.
	Retention time.Duration
}

func NewRedisCache(cfg RedisConfig, l logger.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	retention := cfg.Retention
	if retention == 0 {
		retention = 7 * 24 * time.Hour
	}

	l.Info("redis cache initialized", "addr", cfg.Addr, "db", cfg.DB)

	return &RedisCache{
		client:    client,
		retention: retention,
		logger:    l,
	}, nil
}

var _ TileCache = (*RedisCache)(nil)

func (c *RedisCache) keyFor(k TileCacheKey) string {
	return fmt.Sprintf("tile:%s:%d:%d:%d", k.Layer, k.Z, k.X, k.Y)
}

func (c *RedisCache) Get(ctx context.Context, k TileCacheKey) (*CacheItem, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RedisOperationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	buf, err := c.client.Get(ctx, c.keyFor(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		metrics.RedisErrors.WithLabelValues("get").Inc()
		c.logger.Error("redis cache get failed", "key", k, "error", err)
		return nil, false, fmt.Errorf("redis get error: %w", err)
	}

	item, err := DecodeEntry(buf)
	if err != nil {
		c.logger.Warn("corrupt redis entry", "key", k, "error", err)
		return nil, false, nil
	}

	return item, true, nil
}

func (c *RedisCache) Set(ctx context.Context, k TileCacheKey, data []byte, expiration time.Time) error {
	start := time.Now()
	defer func() {
		metrics.RedisOperationDuration.WithLabelValues("set").Observe(time.Since(start).Seconds())
	}()

	ttl := c.ttl(expiration, time.Now())
	if err := c.client.Set(ctx, c.keyFor(k), EncodeEntry(data, expiration), ttl).Err(); err != nil {
		metrics.RedisErrors.WithLabelValues("set").Inc()
		c.logger.Error("redis cache set failed", "key", k, "error", err)
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

func (c *RedisCache) ttl(expiration, now time.Time) time.Duration {
	ttl := expiration.Sub(now)
	if ttl < 0 {
		ttl = 0
	}
	return ttl + c.retention
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
