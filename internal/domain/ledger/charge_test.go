package ledger

import (
	"testing"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCharge(t *testing.T, amount int64, dueDate *time.Time) *Charge {
	t.Helper()
	c, err := NewCharge(
		uuid.New(),
		"CHG-20260801-00001",
		uuid.New(),
		ChargeCategoryRentalRate,
		"Weekly rental rate",
		valueobject.NewMoneyEUR(decimal.NewFromInt(amount)),
		dueDate,
		time.Now(),
	)
	require.NoError(t, err)
	return c
}

func TestNewCharge(t *testing.T) {
	t.Run("creates charge with valid inputs", func(t *testing.T) {
		due := time.Now().Add(7 * 24 * time.Hour)
		c := newTestCharge(t, 100, &due)

		assert.Equal(t, ChargeStatusUnpaid, c.Status)
		assert.True(t, c.Amount.Equal(decimal.NewFromInt(100)))
		assert.True(t, c.PaidAmount.IsZero())
		assert.True(t, c.OutstandingAmount.Equal(decimal.NewFromInt(100)))
		assert.Empty(t, c.Applications)
		assert.Equal(t, 1, c.GetVersion())

		events := c.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "ChargeCreated", events[0].EventType())
	})

	t.Run("rejects empty charge number", func(t *testing.T) {
		_, err := NewCharge(uuid.New(), "", uuid.New(), ChargeCategoryFine, "", valueobject.NewMoneyEUR(decimal.NewFromInt(10)), nil, time.Now())
		assert.Error(t, err)
	})

	t.Run("rejects nil contract", func(t *testing.T) {
		_, err := NewCharge(uuid.New(), "CHG-1", uuid.Nil, ChargeCategoryFine, "", valueobject.NewMoneyEUR(decimal.NewFromInt(10)), nil, time.Now())
		assert.Error(t, err)
	})

	t.Run("rejects invalid category", func(t *testing.T) {
		_, err := NewCharge(uuid.New(), "CHG-1", uuid.New(), ChargeCategory("BOGUS"), "", valueobject.NewMoneyEUR(decimal.NewFromInt(10)), nil, time.Now())
		assert.Error(t, err)
	})

	t.Run("rejects zero and negative amounts", func(t *testing.T) {
		_, err := NewCharge(uuid.New(), "CHG-1", uuid.New(), ChargeCategoryFine, "", valueobject.NewMoneyEUR(decimal.Zero), nil, time.Now())
		assert.Error(t, err)

		_, err = NewCharge(uuid.New(), "CHG-1", uuid.New(), ChargeCategoryFine, "", valueobject.NewMoneyEUR(decimal.NewFromInt(-5)), nil, time.Now())
		assert.Error(t, err)
	})
}

func TestChargeApplyPayment(t *testing.T) {
	t.Run("partial payment moves charge to PARTIAL", func(t *testing.T) {
		c := newTestCharge(t, 100, nil)
		c.ClearDomainEvents()

		err := c.ApplyPayment(valueobject.NewMoneyEUR(decimal.NewFromInt(40)), uuid.New(), time.Now())
		require.NoError(t, err)

		assert.Equal(t, ChargeStatusPartial, c.Status)
		assert.True(t, c.PaidAmount.Equal(decimal.NewFromInt(40)))
		assert.True(t, c.OutstandingAmount.Equal(decimal.NewFromInt(60)))
		assert.Equal(t, 1, c.ApplicationCount())
		assert.Equal(t, 2, c.GetVersion())

		events := c.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "ChargePaymentApplied", events[0].EventType())
	})

	t.Run("full payment settles the charge", func(t *testing.T) {
		c := newTestCharge(t, 100, nil)
		c.ClearDomainEvents()
		appliedAt := time.Now()

		err := c.ApplyPayment(valueobject.NewMoneyEUR(decimal.NewFromInt(100)), uuid.New(), appliedAt)
		require.NoError(t, err)

		assert.Equal(t, ChargeStatusPaid, c.Status)
		assert.True(t, c.OutstandingAmount.IsZero())
		require.NotNil(t, c.PaidAt)
		assert.Equal(t, appliedAt, *c.PaidAt)

		events := c.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "ChargeSettled", events[0].EventType())
	})

	t.Run("two partial payments settle the charge", func(t *testing.T) {
		c := newTestCharge(t, 100, nil)
		p1 := uuid.New()
		p2 := uuid.New()

		require.NoError(t, c.ApplyPayment(valueobject.NewMoneyEUR(decimal.NewFromInt(60)), p1, time.Now()))
		require.NoError(t, c.ApplyPayment(valueobject.NewMoneyEUR(decimal.NewFromInt(40)), p2, time.Now()))

		assert.True(t, c.IsPaid())
		assert.Equal(t, 2, c.ApplicationCount())

		// Sum of application amounts equals paid amount
		sum := decimal.Zero
		for _, a := range c.Applications {
			sum = sum.Add(a.Amount)
		}
		assert.True(t, sum.Equal(c.PaidAmount))
	})

	t.Run("rejects payment exceeding outstanding", func(t *testing.T) {
		c := newTestCharge(t, 100, nil)
		err := c.ApplyPayment(valueobject.NewMoneyEUR(decimal.NewFromInt(101)), uuid.New(), time.Now())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds outstanding")
	})

	t.Run("rejects payment on settled charge", func(t *testing.T) {
		c := newTestCharge(t, 100, nil)
		require.NoError(t, c.ApplyPayment(valueobject.NewMoneyEUR(decimal.NewFromInt(100)), uuid.New(), time.Now()))

		err := c.ApplyPayment(valueobject.NewMoneyEUR(decimal.NewFromInt(1)), uuid.New(), time.Now())
		assert.Error(t, err)
	})

	t.Run("rejects non-positive payment", func(t *testing.T) {
		c := newTestCharge(t, 100, nil)
		err := c.ApplyPayment(valueobject.NewMoneyEUR(decimal.Zero), uuid.New(), time.Now())
		assert.Error(t, err)
	})
}

func TestChargeCancel(t *testing.T) {
	t.Run("cancels unpaid charge", func(t *testing.T) {
		c := newTestCharge(t, 100, nil)
		c.ClearDomainEvents()

		err := c.Cancel("Raised in error")
		require.NoError(t, err)

		assert.True(t, c.IsCancelled())
		assert.True(t, c.OutstandingAmount.IsZero())
		assert.NotNil(t, c.CancelledAt)

		events := c.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "ChargeCancelled", events[0].EventType())
	})

	t.Run("rejects cancel with applied payments", func(t *testing.T) {
		c := newTestCharge(t, 100, nil)
		require.NoError(t, c.ApplyPayment(valueobject.NewMoneyEUR(decimal.NewFromInt(10)), uuid.New(), time.Now()))

		err := c.Cancel("too late")
		assert.Error(t, err)
	})

	t.Run("rejects cancel without reason", func(t *testing.T) {
		c := newTestCharge(t, 100, nil)
		assert.Error(t, c.Cancel(""))
	})
}

func TestChargeDueDateHelpers(t *testing.T) {
	t.Run("DaysUntilDue counts calendar days", func(t *testing.T) {
		today := time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC)
		due := time.Date(2026, 8, 12, 23, 0, 0, 0, time.UTC)
		c := newTestCharge(t, 100, &due)

		days, ok := c.DaysUntilDue(today)
		require.True(t, ok)
		assert.Equal(t, 2, days)
	})

	t.Run("DaysUntilDue is zero on the due date", func(t *testing.T) {
		today := time.Date(2026, 8, 12, 18, 0, 0, 0, time.UTC)
		due := time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC)
		c := newTestCharge(t, 100, &due)

		days, ok := c.DaysUntilDue(today)
		require.True(t, ok)
		assert.Equal(t, 0, days)
	})

	t.Run("DaysUntilDue is negative past the due date", func(t *testing.T) {
		today := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
		due := time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC)
		c := newTestCharge(t, 100, &due)

		days, ok := c.DaysUntilDue(today)
		require.True(t, ok)
		assert.Equal(t, -8, days)
	})

	t.Run("DaysUntilDue spans a spring-forward transition", func(t *testing.T) {
		// Europe/Berlin loses an hour on 2026-03-29, so the wall-clock
		// gap is 47h; the calendar gap is still 2 days.
		berlin, err := time.LoadLocation("Europe/Berlin")
		require.NoError(t, err)

		today := time.Date(2026, 3, 28, 0, 0, 0, 0, berlin)
		due := time.Date(2026, 3, 30, 0, 0, 0, 0, berlin)
		c := newTestCharge(t, 100, &due)

		days, ok := c.DaysUntilDue(today)
		require.True(t, ok)
		assert.Equal(t, 2, days)
	})

	t.Run("DaysUntilDue spans a fall-back transition", func(t *testing.T) {
		// The extra hour on 2026-10-25 stretches the gap to 49h; the
		// calendar gap is still 2 days.
		berlin, err := time.LoadLocation("Europe/Berlin")
		require.NoError(t, err)

		today := time.Date(2026, 10, 24, 12, 0, 0, 0, berlin)
		due := time.Date(2026, 10, 26, 12, 0, 0, 0, berlin)
		c := newTestCharge(t, 100, &due)

		days, ok := c.DaysUntilDue(today)
		require.True(t, ok)
		assert.Equal(t, 2, days)
	})

	t.Run("DaysUntilDue reports missing due date", func(t *testing.T) {
		c := newTestCharge(t, 100, nil)
		_, ok := c.DaysUntilDue(time.Now())
		assert.False(t, ok)
	})

	t.Run("IsOverdue ignores settled charges", func(t *testing.T) {
		due := time.Now().Add(-48 * time.Hour)
		c := newTestCharge(t, 100, &due)
		assert.True(t, c.IsOverdue(time.Now()))

		require.NoError(t, c.ApplyPayment(valueobject.NewMoneyEUR(decimal.NewFromInt(100)), uuid.New(), time.Now()))
		assert.False(t, c.IsOverdue(time.Now()))
	})
}

func TestChargeStatusTransitions(t *testing.T) {
	assert.True(t, ChargeStatusUnpaid.CanApplyPayment())
	assert.True(t, ChargeStatusPartial.CanApplyPayment())
	assert.False(t, ChargeStatusPaid.CanApplyPayment())
	assert.False(t, ChargeStatusCancelled.CanApplyPayment())

	assert.True(t, ChargeStatusPaid.IsTerminal())
	assert.True(t, ChargeStatusCancelled.IsTerminal())
	assert.False(t, ChargeStatusUnpaid.IsTerminal())
}

func TestChargeCategoryBypass(t *testing.T) {
	assert.True(t, ChargeCategoryInitialFee.BypassesAllocation())
	assert.False(t, ChargeCategoryRentalRate.BypassesAllocation())
	assert.False(t, ChargeCategoryFine.BypassesAllocation())
}
