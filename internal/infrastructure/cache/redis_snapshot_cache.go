package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appledger "github.com/orderdesk/backend/internal/application/ledger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds the connection settings for a Redis-backed cache
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisSnapshotCache implements the metrics cache using Redis so multiple
// instances share one snapshot per period
type RedisSnapshotCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisSnapshotCacheOption is a functional option for configuring the cache
type RedisSnapshotCacheOption func(*RedisSnapshotCache)

// WithRedisTTL sets the snapshot TTL
func WithRedisTTL(ttl time.Duration) RedisSnapshotCacheOption {
	return func(c *RedisSnapshotCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisSnapshotCacheOption {
	return func(c *RedisSnapshotCache) {
		c.logger = logger
	}
}

// NewRedisSnapshotCache creates a new Redis-based snapshot cache
func NewRedisSnapshotCache(cfg RedisConfig, opts ...RedisSnapshotCacheOption) (*RedisSnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisSnapshotCache{
		client:     client,
		ownsClient: true,
		ttl:        defaultSnapshotTTL,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisSnapshotCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisSnapshotCacheWithClient(client *redis.Client, opts ...RedisSnapshotCacheOption) *RedisSnapshotCache {
	cache := &RedisSnapshotCache{
		client:     client,
		ownsClient: false,
		ttl:        defaultSnapshotTTL,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// Get retrieves a snapshot from cache. Redis failures degrade to a cache miss
// so the dashboard stays available when Redis is down.
func (c *RedisSnapshotCache) Get(ctx context.Context, key string) (*appledger.MetricsSnapshot, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss for metrics snapshot", zap.String("key", key))
		return nil, false
	}
	if err != nil {
		c.logger.Error("Failed to get metrics snapshot from cache",
			zap.String("key", key),
			zap.Error(err))
		return nil, false
	}

	var snapshot appledger.MetricsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		c.logger.Error("Failed to unmarshal metrics snapshot",
			zap.String("key", key),
			zap.Error(err))
		// Delete corrupted cache entry
		_ = c.client.Del(ctx, key)
		return nil, false
	}

	c.logger.Debug("Cache hit for metrics snapshot", zap.String("key", key))
	return &snapshot, true
}

// Set stores a snapshot in cache
func (c *RedisSnapshotCache) Set(ctx context.Context, key string, snapshot *appledger.MetricsSnapshot) {
	if snapshot == nil {
		return
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.Error("Failed to marshal metrics snapshot",
			zap.String("key", key),
			zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("Failed to set metrics snapshot in cache",
			zap.String("key", key),
			zap.Error(err))
		return
	}

	c.logger.Debug("Cached metrics snapshot",
		zap.String("key", key),
		zap.Duration("ttl", c.ttl))
}

// Invalidate removes a snapshot from cache
func (c *RedisSnapshotCache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Failed to delete metrics snapshot from cache",
			zap.String("key", key),
			zap.Error(err))
	}
}

// Close releases the Redis client if this cache owns it
func (c *RedisSnapshotCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// Ensure RedisSnapshotCache implements the application cache interface
var _ appledger.MetricsCache = (*RedisSnapshotCache)(nil)
