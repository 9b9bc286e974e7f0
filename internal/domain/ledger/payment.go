package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the allocation status of a payment
type PaymentStatus string

const (
	PaymentStatusReceived PaymentStatus = "RECEIVED" // Recorded, allocation not yet run
	PaymentStatusApplied  PaymentStatus = "APPLIED"  // Fully allocated to charges
	PaymentStatusPartial  PaymentStatus = "PARTIAL"  // Partially allocated, remainder held as credit
	PaymentStatusCredit   PaymentStatus = "CREDIT"   // Nothing to allocate against, full amount held as credit
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusReceived, PaymentStatusApplied, PaymentStatusPartial, PaymentStatusCredit:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsFinal returns true once allocation has been run for the payment
func (s PaymentStatus) IsFinal() bool {
	return s == PaymentStatusApplied || s == PaymentStatusPartial || s == PaymentStatusCredit
}

// CanAllocate returns true if the payment can still be allocated
func (s PaymentStatus) CanAllocate() bool {
	return s == PaymentStatusReceived
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodDirectDebit  PaymentMethod = "DIRECT_DEBIT"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodCash,
		PaymentMethodDirectDebit, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentPurpose declares what a payment is meant to settle. General
// payments run through oldest-first allocation across the contract's
// open charges; initial-fee payments settle only the contract's
// initial-fee charges and never touch rental or damage charges.
type PaymentPurpose string

const (
	PaymentPurposeGeneral    PaymentPurpose = "GENERAL"
	PaymentPurposeInitialFee PaymentPurpose = "INITIAL_FEE"
)

// IsValid checks if the purpose is a valid PaymentPurpose
func (p PaymentPurpose) IsValid() bool {
	switch p {
	case PaymentPurposeGeneral, PaymentPurposeInitialFee:
		return true
	}
	return false
}

// String returns the string representation of PaymentPurpose
func (p PaymentPurpose) String() string {
	return string(p)
}

// ChargeAllocation records a slice of a payment allocated to a charge.
// It is a value object within the Payment aggregate, stored as JSONB.
type ChargeAllocation struct {
	ID           uuid.UUID       `json:"id"`
	PaymentID    uuid.UUID       `json:"payment_id"`
	ChargeID     uuid.UUID       `json:"charge_id"`
	ChargeNumber string          `json:"charge_number"` // Denormalized for display
	Amount       decimal.Decimal `json:"amount"`
	AllocatedAt  time.Time       `json:"allocated_at"`
}

// ChargeAllocations is a slice of ChargeAllocation that implements GORM Scanner/Valuer for JSONB storage
type ChargeAllocations []ChargeAllocation

// Value implements driver.Valuer interface for GORM to store as JSONB
func (a ChargeAllocations) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (a *ChargeAllocations) Scan(value interface{}) error {
	if value == nil {
		*a = ChargeAllocations{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan ChargeAllocations: unsupported type")
	}

	if len(bytes) == 0 {
		*a = ChargeAllocations{}
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// NewChargeAllocation creates a new charge allocation record
func NewChargeAllocation(paymentID, chargeID uuid.UUID, chargeNumber string, amount valueobject.Money, allocatedAt time.Time) *ChargeAllocation {
	return &ChargeAllocation{
		ID:           uuid.New(),
		PaymentID:    paymentID,
		ChargeID:     chargeID,
		ChargeNumber: chargeNumber,
		Amount:       amount.Amount(),
		AllocatedAt:  allocatedAt,
	}
}

// GetAmountMoney returns the allocated amount as Money value object
func (a *ChargeAllocation) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(a.Amount)
}

// Payment is the credit side of a contract ledger: money received from
// a customer, allocated to open charges. It is an aggregate root.
type Payment struct {
	shared.TenantAggregateRoot
	PaymentNumber     string            `json:"payment_number"`
	ContractID        uuid.UUID         `json:"contract_id"`
	Amount            decimal.Decimal   `json:"amount"`             // Total payment amount
	AllocatedAmount   decimal.Decimal   `json:"allocated_amount"`   // Amount allocated to charges
	UnallocatedAmount decimal.Decimal   `json:"unallocated_amount"` // Remainder held as contract credit
	Method            PaymentMethod     `json:"method"`
	Purpose           PaymentPurpose    `json:"purpose"`
	Reference         string            `json:"reference"` // Bank transaction or terminal reference
	Status            PaymentStatus     `json:"status"`
	ReceivedAt        time.Time         `json:"received_at"`
	Allocations       ChargeAllocations `json:"allocations"`
	AllocatedAt       *time.Time        `json:"allocated_at"` // When allocation ran
}

// NewPayment creates a new payment on a contract ledger
func NewPayment(
	tenantID uuid.UUID,
	paymentNumber string,
	contractID uuid.UUID,
	amount valueobject.Money,
	method PaymentMethod,
	receivedAt time.Time,
) (*Payment, error) {
	p, err := newPayment(tenantID, paymentNumber, contractID, amount, method, receivedAt)
	if err != nil {
		return nil, err
	}

	p.AddDomainEvent(NewPaymentReceivedEvent(p))

	return p, nil
}

// NewPaymentWithID creates a payment under a caller-supplied ID. The ID
// is set before the received event is raised so the event carries the
// identity the payment will be stored under.
func NewPaymentWithID(
	id uuid.UUID,
	tenantID uuid.UUID,
	paymentNumber string,
	contractID uuid.UUID,
	amount valueobject.Money,
	method PaymentMethod,
	receivedAt time.Time,
) (*Payment, error) {
	if id == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT_ID", "Payment ID cannot be empty")
	}

	p, err := newPayment(tenantID, paymentNumber, contractID, amount, method, receivedAt)
	if err != nil {
		return nil, err
	}

	p.ID = id
	p.AddDomainEvent(NewPaymentReceivedEvent(p))

	return p, nil
}

func newPayment(
	tenantID uuid.UUID,
	paymentNumber string,
	contractID uuid.UUID,
	amount valueobject.Money,
	method PaymentMethod,
	receivedAt time.Time,
) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if len(paymentNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot exceed 50 characters")
	}
	if contractID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTRACT", "Contract ID cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if receivedAt.IsZero() {
		return nil, shared.NewDomainError("INVALID_RECEIVED_AT", "Received timestamp is required")
	}

	p := &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PaymentNumber:       paymentNumber,
		ContractID:          contractID,
		Amount:              amount.Amount(),
		AllocatedAmount:     decimal.Zero,
		UnallocatedAmount:   amount.Amount(),
		Method:              method,
		Purpose:             PaymentPurposeGeneral,
		Status:              PaymentStatusReceived,
		ReceivedAt:          receivedAt,
		Allocations:         ChargeAllocations{},
	}

	return p, nil
}

// RecordAllocation records an allocation of part of the payment to a charge.
// The unallocated amount is the ceiling; a charge can only appear once.
func (p *Payment) RecordAllocation(chargeID uuid.UUID, chargeNumber string, amount valueobject.Money, allocatedAt time.Time) (*ChargeAllocation, error) {
	if !p.Status.CanAllocate() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot allocate payment in %s status", p.Status))
	}
	if chargeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CHARGE", "Charge ID cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if amount.Amount().GreaterThan(p.UnallocatedAmount) {
		return nil, shared.NewDomainError("EXCEEDS_UNALLOCATED", fmt.Sprintf("Allocation amount %s exceeds unallocated amount %s", amount.Amount().StringFixed(2), p.UnallocatedAmount.StringFixed(2)))
	}

	for _, alloc := range p.Allocations {
		if alloc.ChargeID == chargeID {
			return nil, shared.NewDomainError("ALREADY_ALLOCATED", fmt.Sprintf("Already allocated to charge %s", chargeNumber))
		}
	}

	allocation := NewChargeAllocation(p.ID, chargeID, chargeNumber, amount, allocatedAt)
	p.Allocations = append(p.Allocations, *allocation)

	p.AllocatedAmount = p.AllocatedAmount.Add(amount.Amount())
	p.UnallocatedAmount = p.Amount.Sub(p.AllocatedAmount)

	p.UpdatedAt = time.Now()

	return allocation, nil
}

// FinalizeAllocation derives the terminal status after an allocation run.
// The remainder, if any, stays on the contract as credit.
func (p *Payment) FinalizeAllocation(allocatedAt time.Time) error {
	if !p.Status.CanAllocate() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot finalize payment in %s status", p.Status))
	}

	switch {
	case p.UnallocatedAmount.IsZero():
		p.Status = PaymentStatusApplied
	case p.AllocatedAmount.IsZero():
		p.Status = PaymentStatusCredit
	default:
		p.Status = PaymentStatusPartial
	}

	p.AllocatedAt = &allocatedAt
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentAllocatedEvent(p))

	return nil
}

// SetPurpose overrides the default GENERAL purpose. The purpose steers
// allocation, so it can only change while allocation has not run.
func (p *Payment) SetPurpose(purpose PaymentPurpose) error {
	if !purpose.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_PURPOSE", fmt.Sprintf("Payment purpose %q is not valid", purpose))
	}
	if !p.Status.CanAllocate() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot change purpose of payment in %s status", p.Status))
	}

	p.Purpose = purpose
	p.UpdatedAt = time.Now()

	return nil
}

// SetReference sets the external payment reference
func (p *Payment) SetReference(reference string) error {
	if len(reference) > 100 {
		return shared.NewDomainError("INVALID_REFERENCE", "Payment reference cannot exceed 100 characters")
	}

	p.Reference = reference
	p.UpdatedAt = time.Now()

	return nil
}

// Helper methods

// GetAmountMoney returns the total amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(p.Amount)
}

// GetAllocatedAmountMoney returns the allocated amount as Money
func (p *Payment) GetAllocatedAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(p.AllocatedAmount)
}

// GetUnallocatedAmountMoney returns the unallocated amount as Money
func (p *Payment) GetUnallocatedAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(p.UnallocatedAmount)
}

// IsFullyAllocated returns true if the whole amount went to charges
func (p *Payment) IsFullyAllocated() bool {
	return p.UnallocatedAmount.IsZero()
}

// AllocationCount returns the number of allocations on the payment
func (p *Payment) AllocationCount() int {
	return len(p.Allocations)
}

// GetAllocationByChargeID returns the allocation for a specific charge
func (p *Payment) GetAllocationByChargeID(chargeID uuid.UUID) *ChargeAllocation {
	for i := range p.Allocations {
		if p.Allocations[i].ChargeID == chargeID {
			return &p.Allocations[i]
		}
	}
	return nil
}
