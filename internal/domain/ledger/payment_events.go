package ledger

import (
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentReceivedEvent is raised when a new payment is recorded
type PaymentReceivedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	ContractID    uuid.UUID       `json:"contract_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	ReceivedAt    time.Time       `json:"received_at"`
}

// EventType returns the event type name
func (e *PaymentReceivedEvent) EventType() string {
	return "PaymentReceived"
}

// NewPaymentReceivedEvent creates a new PaymentReceivedEvent
func NewPaymentReceivedEvent(p *Payment) *PaymentReceivedEvent {
	return &PaymentReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentReceived", "Payment", p.ID, p.TenantID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		ContractID:      p.ContractID,
		Amount:          p.Amount,
		Method:          p.Method,
		ReceivedAt:      p.ReceivedAt,
	}
}

// PaymentAllocatedEvent is raised when an allocation run completes for a payment
type PaymentAllocatedEvent struct {
	shared.BaseDomainEvent
	PaymentID         uuid.UUID       `json:"payment_id"`
	PaymentNumber     string          `json:"payment_number"`
	ContractID        uuid.UUID       `json:"contract_id"`
	Amount            decimal.Decimal `json:"amount"`
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
	Status            PaymentStatus   `json:"status"`
	AllocationCount   int             `json:"allocation_count"`
}

// EventType returns the event type name
func (e *PaymentAllocatedEvent) EventType() string {
	return "PaymentAllocated"
}

// NewPaymentAllocatedEvent creates a new PaymentAllocatedEvent
func NewPaymentAllocatedEvent(p *Payment) *PaymentAllocatedEvent {
	return &PaymentAllocatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent("PaymentAllocated", "Payment", p.ID, p.TenantID),
		PaymentID:         p.ID,
		PaymentNumber:     p.PaymentNumber,
		ContractID:        p.ContractID,
		Amount:            p.Amount,
		AllocatedAmount:   p.AllocatedAmount,
		UnallocatedAmount: p.UnallocatedAmount,
		Status:            p.Status,
		AllocationCount:   p.AllocationCount(),
	}
}
