package cache

import (
	"context"
	"testing"
	"time"

	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBalance(contractID uuid.UUID) *ledger.Balance {
	calc := ledger.NewBalanceCalculator()
	b := calc.Calculate(contractID.String(), decimal.NewFromInt(500), decimal.NewFromInt(200), time.Now())
	return &b
}

func TestInMemoryBalanceCache_GetSet(t *testing.T) {
	t.Run("returns miss for unknown contract", func(t *testing.T) {
		cache := NewInMemoryBalanceCache()
		defer cache.Close()

		balance, found, err := cache.GetBalance(context.Background(), uuid.New(), uuid.New())

		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, balance)
	})

	t.Run("returns cached balance", func(t *testing.T) {
		cache := NewInMemoryBalanceCache()
		defer cache.Close()

		tenantID := uuid.New()
		contractID := uuid.New()
		balance := testBalance(contractID)

		err := cache.SetBalance(context.Background(), tenantID, contractID, balance)
		require.NoError(t, err)

		cached, found, err := cache.GetBalance(context.Background(), tenantID, contractID)

		assert.NoError(t, err)
		assert.True(t, found)
		require.NotNil(t, cached)
		assert.Equal(t, ledger.BalanceCategoryInDebt, cached.Category)
		assert.True(t, cached.Balance.Equal(decimal.NewFromInt(300)))
	})

	t.Run("keys are tenant scoped", func(t *testing.T) {
		cache := NewInMemoryBalanceCache()
		defer cache.Close()

		contractID := uuid.New()
		require.NoError(t, cache.SetBalance(context.Background(), uuid.New(), contractID, testBalance(contractID)))

		_, found, err := cache.GetBalance(context.Background(), uuid.New(), contractID)

		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("ignores nil balance", func(t *testing.T) {
		cache := NewInMemoryBalanceCache()
		defer cache.Close()

		err := cache.SetBalance(context.Background(), uuid.New(), uuid.New(), nil)

		assert.NoError(t, err)
		assert.Equal(t, 0, cache.Count())
	})
}

func TestInMemoryBalanceCache_Expiration(t *testing.T) {
	t.Run("expired entry is a miss", func(t *testing.T) {
		cache := NewInMemoryBalanceCache(WithInMemoryTTL(10 * time.Millisecond))
		defer cache.Close()

		tenantID := uuid.New()
		contractID := uuid.New()
		require.NoError(t, cache.SetBalance(context.Background(), tenantID, contractID, testBalance(contractID)))

		time.Sleep(20 * time.Millisecond)

		_, found, err := cache.GetBalance(context.Background(), tenantID, contractID)

		assert.NoError(t, err)
		assert.False(t, found)
	})
}

func TestInMemoryBalanceCache_Invalidate(t *testing.T) {
	t.Run("removes cached balance", func(t *testing.T) {
		cache := NewInMemoryBalanceCache()
		defer cache.Close()

		tenantID := uuid.New()
		contractID := uuid.New()
		require.NoError(t, cache.SetBalance(context.Background(), tenantID, contractID, testBalance(contractID)))

		err := cache.InvalidateBalance(context.Background(), tenantID, contractID)
		require.NoError(t, err)

		_, found, _ := cache.GetBalance(context.Background(), tenantID, contractID)
		assert.False(t, found)
		assert.Equal(t, 0, cache.Count())
	})
}

func TestInMemoryBalanceCache_Stats(t *testing.T) {
	t.Run("tracks hits and misses", func(t *testing.T) {
		cache := NewInMemoryBalanceCache()
		defer cache.Close()

		tenantID := uuid.New()
		contractID := uuid.New()
		require.NoError(t, cache.SetBalance(context.Background(), tenantID, contractID, testBalance(contractID)))

		_, _, _ = cache.GetBalance(context.Background(), tenantID, contractID)
		_, _, _ = cache.GetBalance(context.Background(), tenantID, uuid.New())

		hits, misses := cache.GetStats()
		assert.Equal(t, int64(1), hits)
		assert.Equal(t, int64(1), misses)
	})
}

func TestInMemoryBalanceCache_Close(t *testing.T) {
	t.Run("close is idempotent", func(t *testing.T) {
		cache := NewInMemoryBalanceCache()

		assert.NoError(t, cache.Close())
		assert.NoError(t, cache.Close())
	})
}
