package ledger

import (
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeCreatedEvent is raised when a new charge enters the ledger
type ChargeCreatedEvent struct {
	shared.BaseDomainEvent
	ChargeID     uuid.UUID       `json:"charge_id"`
	ChargeNumber string          `json:"charge_number"`
	ContractID   uuid.UUID       `json:"contract_id"`
	Category     ChargeCategory  `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
}

// EventType returns the event type name
func (e *ChargeCreatedEvent) EventType() string {
	return "ChargeCreated"
}

// NewChargeCreatedEvent creates a new ChargeCreatedEvent
func NewChargeCreatedEvent(c *Charge) *ChargeCreatedEvent {
	return &ChargeCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChargeCreated", "Charge", c.ID, c.TenantID),
		ChargeID:        c.ID,
		ChargeNumber:    c.ChargeNumber,
		ContractID:      c.ContractID,
		Category:        c.Category,
		Amount:          c.Amount,
		DueDate:         c.DueDate,
	}
}

// ChargePaymentAppliedEvent is raised when a partial payment is applied to a charge
type ChargePaymentAppliedEvent struct {
	shared.BaseDomainEvent
	ChargeID          uuid.UUID       `json:"charge_id"`
	ChargeNumber      string          `json:"charge_number"`
	ContractID        uuid.UUID       `json:"contract_id"`
	PaymentID         uuid.UUID       `json:"payment_id"`
	PaymentAmount     decimal.Decimal `json:"payment_amount"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
}

// EventType returns the event type name
func (e *ChargePaymentAppliedEvent) EventType() string {
	return "ChargePaymentApplied"
}

// NewChargePaymentAppliedEvent creates a new ChargePaymentAppliedEvent
func NewChargePaymentAppliedEvent(c *Charge, paymentAmount valueobject.Money, paymentID uuid.UUID) *ChargePaymentAppliedEvent {
	return &ChargePaymentAppliedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent("ChargePaymentApplied", "Charge", c.ID, c.TenantID),
		ChargeID:          c.ID,
		ChargeNumber:      c.ChargeNumber,
		ContractID:        c.ContractID,
		PaymentID:         paymentID,
		PaymentAmount:     paymentAmount.Amount(),
		PaidAmount:        c.PaidAmount,
		OutstandingAmount: c.OutstandingAmount,
	}
}

// ChargeSettledEvent is raised when a charge is fully paid
type ChargeSettledEvent struct {
	shared.BaseDomainEvent
	ChargeID     uuid.UUID       `json:"charge_id"`
	ChargeNumber string          `json:"charge_number"`
	ContractID   uuid.UUID       `json:"contract_id"`
	Amount       decimal.Decimal `json:"amount"`
	PaidAt       time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *ChargeSettledEvent) EventType() string {
	return "ChargeSettled"
}

// NewChargeSettledEvent creates a new ChargeSettledEvent
func NewChargeSettledEvent(c *Charge) *ChargeSettledEvent {
	paidAt := time.Now()
	if c.PaidAt != nil {
		paidAt = *c.PaidAt
	}
	return &ChargeSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChargeSettled", "Charge", c.ID, c.TenantID),
		ChargeID:        c.ID,
		ChargeNumber:    c.ChargeNumber,
		ContractID:      c.ContractID,
		Amount:          c.Amount,
		PaidAt:          paidAt,
	}
}

// ChargeCancelledEvent is raised when a charge is cancelled
type ChargeCancelledEvent struct {
	shared.BaseDomainEvent
	ChargeID     uuid.UUID       `json:"charge_id"`
	ChargeNumber string          `json:"charge_number"`
	ContractID   uuid.UUID       `json:"contract_id"`
	Amount       decimal.Decimal `json:"amount"`
	CancelReason string          `json:"cancel_reason"`
	CancelledAt  time.Time       `json:"cancelled_at"`
}

// EventType returns the event type name
func (e *ChargeCancelledEvent) EventType() string {
	return "ChargeCancelled"
}

// NewChargeCancelledEvent creates a new ChargeCancelledEvent
func NewChargeCancelledEvent(c *Charge) *ChargeCancelledEvent {
	cancelledAt := time.Now()
	if c.CancelledAt != nil {
		cancelledAt = *c.CancelledAt
	}
	return &ChargeCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChargeCancelled", "Charge", c.ID, c.TenantID),
		ChargeID:        c.ID,
		ChargeNumber:    c.ChargeNumber,
		ContractID:      c.ContractID,
		Amount:          c.Amount,
		CancelReason:    c.CancelReason,
		CancelledAt:     cancelledAt,
	}
}
