package reminder

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

func TestTier(t *testing.T) {
	t.Run("overdue tiers carry their level", func(t *testing.T) {
		assert.Equal(t, Tier("overdue_1"), OverdueTier(1))
		assert.Equal(t, Tier("overdue_3"), OverdueTier(3))

		level, ok := OverdueTier(2).OverdueLevel()
		assert.True(t, ok)
		assert.Equal(t, 2, level)

		_, ok = TierDue.OverdueLevel()
		assert.False(t, ok)
	})

	t.Run("validity", func(t *testing.T) {
		assert.True(t, TierUpcoming.IsValid())
		assert.True(t, TierDue.IsValid())
		assert.True(t, Tier("overdue_4").IsValid())
		assert.False(t, Tier("overdue_0").IsValid())
		assert.False(t, Tier("overdue_x").IsValid())
		assert.False(t, Tier("weekly").IsValid())
	})
}

func TestClassify(t *testing.T) {
	policy := DefaultPolicy()

	t.Run("day offsets map to tiers", func(t *testing.T) {
		cases := []struct {
			days int
			tier Tier
			ok   bool
		}{
			{3, "", false},
			{2, TierUpcoming, true},
			{1, "", false},
			{0, TierDue, true},
			{-1, OverdueTier(1), true},
			{-2, "", false},
			{-6, "", false},
			{-7, OverdueTier(2), true},
			{-8, "", false},
			{-14, OverdueTier(3), true},
			{-21, OverdueTier(4), true},
			{-28, "", false}, // level 5 exceeds the default cap of 4
			{-35, "", false},
		}
		for _, tc := range cases {
			tier, ok := Classify(tc.days, policy)
			assert.Equal(t, tc.ok, ok, "days=%d", tc.days)
			assert.Equal(t, tc.tier, tier, "days=%d", tc.days)
		}
	})

	t.Run("disabled tiers are suppressed", func(t *testing.T) {
		p := DefaultPolicy()
		p.UpcomingEnabled = false
		_, ok := Classify(2, p)
		assert.False(t, ok)

		p = DefaultPolicy()
		p.DueEnabled = false
		_, ok = Classify(0, p)
		assert.False(t, ok)

		p = DefaultPolicy()
		p.OverdueEnabled = false
		_, ok = Classify(-1, p)
		assert.False(t, ok)
		_, ok = Classify(-7, p)
		assert.False(t, ok)
	})

	t.Run("overdue cap is configurable", func(t *testing.T) {
		p := DefaultPolicy()
		p.MaxOverdueReminders = 2

		tier, ok := Classify(-7, p)
		assert.True(t, ok)
		assert.Equal(t, OverdueTier(2), tier)

		_, ok = Classify(-14, p)
		assert.False(t, ok)
	})
}

func TestClassifyCharge(t *testing.T) {
	policy := DefaultPolicy()
	today := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	newCharge := func(t *testing.T, dueDate *time.Time) *ledger.Charge {
		t.Helper()
		c, err := ledger.NewCharge(
			uuid.New(), "CHG-001", uuid.New(),
			ledger.ChargeCategoryRentalRate, "weekly rent",
			valueobject.NewMoneyEUR(decimal.NewFromInt(100)),
			dueDate, today.AddDate(0, 0, -30),
		)
		require.NoError(t, err)
		return c
	}

	t.Run("due today classifies as due", func(t *testing.T) {
		due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		tier, ok := ClassifyCharge(newCharge(t, &due), today, policy)
		assert.True(t, ok)
		assert.Equal(t, TierDue, tier)
	})

	t.Run("due in two days classifies as upcoming", func(t *testing.T) {
		due := time.Date(2026, 3, 12, 23, 0, 0, 0, time.UTC)
		tier, ok := ClassifyCharge(newCharge(t, &due), today, policy)
		assert.True(t, ok)
		assert.Equal(t, TierUpcoming, tier)
	})

	t.Run("one week overdue classifies as second escalation", func(t *testing.T) {
		due := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
		tier, ok := ClassifyCharge(newCharge(t, &due), today, policy)
		assert.True(t, ok)
		assert.Equal(t, OverdueTier(2), tier)
	})

	t.Run("charge without a due date never classifies", func(t *testing.T) {
		_, ok := ClassifyCharge(newCharge(t, nil), today, policy)
		assert.False(t, ok)
	})

	t.Run("cancelled charge never classifies", func(t *testing.T) {
		due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		c := newCharge(t, &due)
		require.NoError(t, c.Cancel("entered twice"))
		_, ok := ClassifyCharge(c, today, policy)
		assert.False(t, ok)
	})

	t.Run("nil charge never classifies", func(t *testing.T) {
		_, ok := ClassifyCharge(nil, today, policy)
		assert.False(t, ok)
	})
}
