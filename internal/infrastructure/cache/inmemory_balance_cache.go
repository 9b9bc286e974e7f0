package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	appledger "github.com/fleetrent/backend/internal/application/ledger"
	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Constants for in-memory cache configuration
const (
	defaultCleanupInterval = 30 * time.Second
)

// InMemoryBalanceCache implements BalanceCache using in-memory storage.
// Used when Redis is disabled; single-process only.
type InMemoryBalanceCache struct {
	balances sync.Map // map[string]*balanceEntry
	ttl      time.Duration
	logger   *zap.Logger
	stopCh   chan struct{} // Channel to stop the cleanup goroutine
	stopped  int32         // Atomic flag to track if cache is stopped

	// Stats for monitoring
	hits   int64
	misses int64
}

// balanceEntry wraps a cached balance with expiration time
type balanceEntry struct {
	value     *ledger.Balance
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired
func (e *balanceEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryBalanceCacheOption is a functional option for configuring the cache
type InMemoryBalanceCacheOption func(*InMemoryBalanceCache)

// WithInMemoryTTL sets the entry TTL
func WithInMemoryTTL(ttl time.Duration) InMemoryBalanceCacheOption {
	return func(c *InMemoryBalanceCache) {
		c.ttl = ttl
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryBalanceCacheOption {
	return func(c *InMemoryBalanceCache) {
		c.logger = logger
	}
}

// NewInMemoryBalanceCache creates a new in-memory balance cache
func NewInMemoryBalanceCache(opts ...InMemoryBalanceCacheOption) *InMemoryBalanceCache {
	cache := &InMemoryBalanceCache{
		ttl:    defaultBalanceTTL,
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// balanceCacheKey generates the cache key for a contract balance
func (c *InMemoryBalanceCache) balanceCacheKey(tenantID, contractID uuid.UUID) string {
	return tenantID.String() + ":" + contractID.String()
}

// GetBalance retrieves a contract balance from cache
func (c *InMemoryBalanceCache) GetBalance(ctx context.Context, tenantID, contractID uuid.UUID) (*ledger.Balance, bool, error) {
	cacheKey := c.balanceCacheKey(tenantID, contractID)

	if value, ok := c.balances.Load(cacheKey); ok {
		entry := value.(*balanceEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			c.logger.Debug("Cache hit for contract balance", zap.String("key", cacheKey))
			return entry.value, true, nil
		}
		// Expired, remove from cache
		c.balances.Delete(cacheKey)
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("Cache miss for contract balance", zap.String("key", cacheKey))
	return nil, false, nil
}

// SetBalance stores a contract balance in cache
func (c *InMemoryBalanceCache) SetBalance(ctx context.Context, tenantID, contractID uuid.UUID, balance *ledger.Balance) error {
	if balance == nil {
		return nil
	}

	cacheKey := c.balanceCacheKey(tenantID, contractID)
	entry := &balanceEntry{
		value:     balance,
		expiresAt: time.Now().Add(c.ttl),
	}

	c.balances.Store(cacheKey, entry)
	c.logger.Debug("Cached contract balance",
		zap.String("key", cacheKey),
		zap.Duration("ttl", c.ttl))
	return nil
}

// InvalidateBalance removes a contract balance from cache
func (c *InMemoryBalanceCache) InvalidateBalance(ctx context.Context, tenantID, contractID uuid.UUID) error {
	cacheKey := c.balanceCacheKey(tenantID, contractID)
	c.balances.Delete(cacheKey)
	c.logger.Debug("Invalidated contract balance", zap.String("key", cacheKey))
	return nil
}

// Close releases any resources held by the cache
func (c *InMemoryBalanceCache) Close() error {
	// Only close once
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryBalanceCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Count returns the number of entries in the cache
func (c *InMemoryBalanceCache) Count() (count int) {
	c.balances.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// cleanupExpired periodically removes expired entries from the cache
func (c *InMemoryBalanceCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("Panic in cache cleanup",
							zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

// doCleanup removes expired entries
func (c *InMemoryBalanceCache) doCleanup() {
	var removed int

	c.balances.Range(func(key, value any) bool {
		entry := value.(*balanceEntry)
		if entry.isExpired() {
			c.balances.Delete(key)
			removed++
		}
		return true
	})

	if removed > 0 {
		c.logger.Debug("Cleaned up expired balance cache entries",
			zap.Int("removed", removed))
	}
}

// Ensure InMemoryBalanceCache implements BalanceCache
var _ appledger.BalanceCache = (*InMemoryBalanceCache)(nil)
