package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	appledger "github.com/fleetrent/backend/internal/application/ledger"
	"github.com/fleetrent/backend/internal/domain/ledger"
)

// defaultBalanceTTL bounds staleness if an invalidation is ever missed
const defaultBalanceTTL = 10 * time.Minute

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisBalanceCache caches computed contract balances in Redis. Writes
// to a contract's ledger invalidate its entry, so a cached value only
// serves repeated reads between mutations.
type RedisBalanceCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisBalanceCache creates a new Redis-backed balance cache
func NewRedisBalanceCache(cfg RedisConfig) (*RedisBalanceCache, error) {
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

	return &RedisBalanceCache{
		client:    client,
		keyPrefix: "ledger:balance:",
		ttl:       defaultBalanceTTL,
	}, nil
}

// NewRedisBalanceCacheWithClient creates a cache with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisBalanceCacheWithClient(client *redis.Client, ttl time.Duration) *RedisBalanceCache {
	if ttl <= 0 {
		ttl = defaultBalanceTTL
	}
	return &RedisBalanceCache{
		client:    client,
		keyPrefix: "ledger:balance:",
		ttl:       ttl,
	}
}

func (c *RedisBalanceCache) key(tenantID, contractID uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", c.keyPrefix, tenantID, contractID)
}

// GetBalance returns the cached balance for a contract, reporting a miss
// without error when the key is absent
func (c *RedisBalanceCache) GetBalance(ctx context.Context, tenantID, contractID uuid.UUID) (*ledger.Balance, bool, error) {
	data, err := c.client.Get(ctx, c.key(tenantID, contractID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached balance: %w", err)
	}

	var balance ledger.Balance
	if err := json.Unmarshal(data, &balance); err != nil {
		// A corrupted entry behaves like a miss
		return nil, false, nil
	}
	return &balance, true, nil
}

// SetBalance stores a computed balance with the cache TTL
func (c *RedisBalanceCache) SetBalance(ctx context.Context, tenantID, contractID uuid.UUID, balance *ledger.Balance) error {
	data, err := json.Marshal(balance)
	if err != nil {
		return fmt.Errorf("failed to marshal balance: %w", err)
	}
	if err := c.client.Set(ctx, c.key(tenantID, contractID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache balance: %w", err)
	}
	return nil
}

// InvalidateBalance drops a contract's cached balance after a ledger write
func (c *RedisBalanceCache) InvalidateBalance(ctx context.Context, tenantID, contractID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(tenantID, contractID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached balance: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisBalanceCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisBalanceCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisBalanceCache implements BalanceCache
var _ appledger.BalanceCache = (*RedisBalanceCache)(nil)
