package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/fleetrent/backend/internal/domain/reminder"
	"github.com/fleetrent/backend/internal/domain/shared"
)

// SettlementAuditHandler writes a structured audit line for every ledger
// event: charges raised, cancelled or settled, payments received and
// allocated. The lines form the money trail operators grep through when
// a contract balance is disputed.
type SettlementAuditHandler struct {
	logger *zap.Logger
}

// NewSettlementAuditHandler creates a settlement audit handler.
func NewSettlementAuditHandler(logger *zap.Logger) *SettlementAuditHandler {
	return &SettlementAuditHandler{logger: logger}
}

// EventTypes lists the ledger events the handler subscribes to.
func (h *SettlementAuditHandler) EventTypes() []string {
	return []string{
		"ChargeCreated",
		"ChargeCancelled",
		"ChargePaymentApplied",
		"ChargeSettled",
		"PaymentReceived",
		"PaymentAllocated",
	}
}

// Handle logs the event with its identifying fields.
func (h *SettlementAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := baseAuditFields(event)

	switch e := event.(type) {
	case *ledger.ChargeCreatedEvent:
		fields = append(fields,
			zap.String("charge_number", e.ChargeNumber),
			zap.String("contract_id", e.ContractID.String()),
			zap.String("category", e.Category.String()),
			zap.String("amount", e.Amount.StringFixed(2)),
		)
	case *ledger.ChargeCancelledEvent:
		fields = append(fields,
			zap.String("charge_number", e.ChargeNumber),
			zap.String("contract_id", e.ContractID.String()),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("reason", e.CancelReason),
		)
	case *ledger.ChargePaymentAppliedEvent:
		fields = append(fields,
			zap.String("charge_number", e.ChargeNumber),
			zap.String("contract_id", e.ContractID.String()),
			zap.String("payment_id", e.PaymentID.String()),
			zap.String("payment_amount", e.PaymentAmount.StringFixed(2)),
			zap.String("outstanding_amount", e.OutstandingAmount.StringFixed(2)),
		)
	case *ledger.ChargeSettledEvent:
		fields = append(fields,
			zap.String("charge_number", e.ChargeNumber),
			zap.String("contract_id", e.ContractID.String()),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.Time("paid_at", e.PaidAt),
		)
	case *ledger.PaymentReceivedEvent:
		fields = append(fields,
			zap.String("payment_number", e.PaymentNumber),
			zap.String("contract_id", e.ContractID.String()),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("method", e.Method.String()),
		)
	case *ledger.PaymentAllocatedEvent:
		fields = append(fields,
			zap.String("payment_number", e.PaymentNumber),
			zap.String("contract_id", e.ContractID.String()),
			zap.String("allocated_amount", e.AllocatedAmount.StringFixed(2)),
			zap.String("unallocated_amount", e.UnallocatedAmount.StringFixed(2)),
			zap.String("status", e.Status.String()),
		)
	}

	h.logger.Info("ledger audit", fields...)
	return nil
}

// ReminderAuditHandler writes a structured audit line for every reminder
// emitted by the overdue scan.
type ReminderAuditHandler struct {
	logger *zap.Logger
}

// NewReminderAuditHandler creates a reminder audit handler.
func NewReminderAuditHandler(logger *zap.Logger) *ReminderAuditHandler {
	return &ReminderAuditHandler{logger: logger}
}

// EventTypes lists the reminder events the handler subscribes to.
func (h *ReminderAuditHandler) EventTypes() []string {
	return []string{"ReminderEmitted"}
}

// Handle logs the emitted reminder with its identifying fields.
func (h *ReminderAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := baseAuditFields(event)

	if e, ok := event.(*reminder.ReminderEmittedEvent); ok {
		fields = append(fields,
			zap.String("contract_id", e.ContractID.String()),
			zap.String("charge_id", e.ChargeID.String()),
			zap.String("tier", e.Tier.String()),
			zap.Time("event_date", e.EventDate),
		)
	}

	h.logger.Info("reminder audit", fields...)
	return nil
}

func baseAuditFields(event shared.DomainEvent) []zap.Field {
	return []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
}

var (
	_ shared.EventHandler = (*SettlementAuditHandler)(nil)
	_ shared.EventHandler = (*ReminderAuditHandler)(nil)
)
