// Package cache provides snapshot caching for dashboard metrics, with an
// in-memory store for single-instance deployments and a Redis-backed store
// for shared deployments.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	appledger "github.com/orderdesk/backend/internal/application/ledger"
	"go.uber.org/zap"
)

const (
	defaultSnapshotTTL     = 30 * time.Second
	defaultCleanupInterval = 30 * time.Second
)

// InMemorySnapshotCache implements the metrics cache using local memory.
// Entries expire after the configured TTL and are swept by a background
// goroutine.
type InMemorySnapshotCache struct {
	entries sync.Map // map[string]*snapshotEntry
	ttl     time.Duration
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

type snapshotEntry struct {
	snapshot  *appledger.MetricsSnapshot
	expiresAt time.Time
}

func (e *snapshotEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemorySnapshotCacheOption is a functional option for configuring the cache
type InMemorySnapshotCacheOption func(*InMemorySnapshotCache)

// WithInMemoryTTL sets the entry TTL
func WithInMemoryTTL(ttl time.Duration) InMemorySnapshotCacheOption {
	return func(c *InMemorySnapshotCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemorySnapshotCacheOption {
	return func(c *InMemorySnapshotCache) {
		c.logger = logger
	}
}

// NewInMemorySnapshotCache creates a new in-memory snapshot cache
func NewInMemorySnapshotCache(opts ...InMemorySnapshotCacheOption) *InMemorySnapshotCache {
	cache := &InMemorySnapshotCache{
		ttl:    defaultSnapshotTTL,
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	go cache.cleanupExpired()

	return cache
}

// Get retrieves a snapshot from cache
func (c *InMemorySnapshotCache) Get(ctx context.Context, key string) (*appledger.MetricsSnapshot, bool) {
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*snapshotEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			c.logger.Debug("Cache hit for metrics snapshot", zap.String("key", key))
			return entry.snapshot, true
		}
		c.entries.Delete(key)
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("Cache miss for metrics snapshot", zap.String("key", key))
	return nil, false
}

// Set stores a snapshot in cache
func (c *InMemorySnapshotCache) Set(ctx context.Context, key string, snapshot *appledger.MetricsSnapshot) {
	if snapshot == nil {
		return
	}

	c.entries.Store(key, &snapshotEntry{
		snapshot:  snapshot,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.logger.Debug("Cached metrics snapshot",
		zap.String("key", key),
		zap.Duration("ttl", c.ttl))
}

// Invalidate removes a snapshot from cache
func (c *InMemorySnapshotCache) Invalidate(ctx context.Context, key string) {
	c.entries.Delete(key)
	c.logger.Debug("Invalidated metrics snapshot", zap.String("key", key))
}

// Stats returns hit and miss counters for monitoring
func (c *InMemorySnapshotCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Close stops the background cleanup goroutine. Safe to call more than once.
func (c *InMemorySnapshotCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// cleanupExpired periodically sweeps expired entries so abandoned keys do not
// accumulate
func (c *InMemorySnapshotCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.entries.Range(func(key, value any) bool {
				if value.(*snapshotEntry).isExpired() {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}

// Ensure InMemorySnapshotCache implements the application cache interface
var _ appledger.MetricsCache = (*InMemorySnapshotCache)(nil)
