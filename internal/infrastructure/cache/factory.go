package cache

import (
	"fmt"
	"time"

	appledger "github.com/orderdesk/backend/internal/application/ledger"
	"github.com/orderdesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SnapshotCacheFactory creates metrics snapshot caches based on configuration
type SnapshotCacheFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SnapshotCacheFactoryOption is a functional option for configuring the factory
type SnapshotCacheFactoryOption func(*SnapshotCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SnapshotCacheFactoryOption {
	return func(f *SnapshotCacheFactory) {
		f.logger = logger
	}
}

// WithSnapshotTTL sets the snapshot TTL used by created caches
func WithSnapshotTTL(ttl time.Duration) SnapshotCacheFactoryOption {
	return func(f *SnapshotCacheFactory) {
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) SnapshotCacheFactoryOption {
	return func(f *SnapshotCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSnapshotCacheFactory creates a new factory
func NewSnapshotCacheFactory(cfg config.RedisConfig, opts ...SnapshotCacheFactoryOption) *SnapshotCacheFactory {
	f := &SnapshotCacheFactory{
		redisConfig:           cfg,
		ttl:                   defaultSnapshotTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed snapshot cache
func (f *SnapshotCacheFactory) CreateRedisCache() (appledger.MetricsCache, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	cache, err := NewRedisSnapshotCache(redisCfg,
		WithRedisTTL(f.ttl),
		WithRedisLogger(f.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis snapshot cache: %w", err)
	}

	return cache, nil
}

// CreateInMemoryCache creates an in-memory snapshot cache.
// In-memory caches do not share state across process instances, so each
// instance recomputes its own snapshots.
func (f *SnapshotCacheFactory) CreateInMemoryCache() appledger.MetricsCache {
	return NewInMemorySnapshotCache(
		WithInMemoryTTL(f.ttl),
		WithInMemoryLogger(f.logger),
	)
}

// CreateCache creates a snapshot cache, preferring Redis and falling back to
// in-memory when Redis is unavailable and fallback is allowed
func (f *SnapshotCacheFactory) CreateCache() (appledger.MetricsCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis metrics snapshot cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for snapshot cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory snapshot cache",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
