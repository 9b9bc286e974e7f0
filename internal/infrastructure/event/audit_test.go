package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/fleetrent/backend/internal/domain/reminder"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

func newObservedAuditLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return zap.New(core), logs
}

func newSettledCharge(t *testing.T) *ledger.Charge {
	t.Helper()
	due := time.Now().AddDate(0, 0, -3)
	c, err := ledger.NewCharge(uuid.New(), "CHG-20260310-00001", uuid.New(), ledger.ChargeCategoryRentalRate, "",
		valueobject.NewMoneyEUR(decimal.NewFromInt(100)), &due, due.AddDate(0, 0, -7))
	require.NoError(t, err)
	c.ClearDomainEvents()
	require.NoError(t, c.ApplyPayment(valueobject.NewMoneyEUR(decimal.NewFromInt(100)), uuid.New(), time.Now()))
	return c
}

func TestSettlementAuditHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("logs a settled charge with its identifying fields", func(t *testing.T) {
		logger, logs := newObservedAuditLogger()
		handler := NewSettlementAuditHandler(logger)

		charge := newSettledCharge(t)
		events := charge.GetDomainEvents()
		require.Len(t, events, 1)

		require.NoError(t, handler.Handle(ctx, events[0]))

		entries := logs.FilterMessage("ledger audit").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "ChargeSettled", fields["event_type"])
		assert.Equal(t, "CHG-20260310-00001", fields["charge_number"])
		assert.Equal(t, "100.00", fields["amount"])
		assert.Equal(t, charge.ID.String(), fields["aggregate_id"])
	})

	t.Run("receives ledger events through the bus", func(t *testing.T) {
		logger, logs := newObservedAuditLogger()
		bus := NewInMemoryEventBus(zap.NewNop())
		bus.Subscribe(NewSettlementAuditHandler(logger))

		payment, err := ledger.NewPayment(uuid.New(), "PAY-20260310-00001", uuid.New(),
			valueobject.NewMoneyEUR(decimal.NewFromInt(250)), ledger.PaymentMethodBankTransfer, time.Now())
		require.NoError(t, err)

		require.NoError(t, bus.Publish(ctx, payment.GetDomainEvents()...))

		entries := logs.FilterMessage("ledger audit").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "PaymentReceived", entries[0].ContextMap()["event_type"])
	})
}

func TestReminderAuditHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("logs an emitted reminder with tier and charge", func(t *testing.T) {
		logger, logs := newObservedAuditLogger()
		handler := NewReminderAuditHandler(logger)

		chargeID := uuid.New()
		emitted, err := reminder.NewReminderEvent(uuid.New(), uuid.New(), chargeID, reminder.TierDue, time.Now())
		require.NoError(t, err)
		events := emitted.GetDomainEvents()
		require.Len(t, events, 1)

		require.NoError(t, handler.Handle(ctx, events[0]))

		entries := logs.FilterMessage("reminder audit").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "ReminderEmitted", fields["event_type"])
		assert.Equal(t, "due", fields["tier"])
		assert.Equal(t, chargeID.String(), fields["charge_id"])
	})

	t.Run("subscribes only to reminder events", func(t *testing.T) {
		handler := NewReminderAuditHandler(zap.NewNop())
		assert.Equal(t, []string{"ReminderEmitted"}, handler.EventTypes())
	})
}
