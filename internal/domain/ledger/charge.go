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

// ChargeStatus represents the status of a charge
type ChargeStatus string

const (
	ChargeStatusUnpaid    ChargeStatus = "UNPAID"    // No payment applied, outstanding = total
	ChargeStatusPartial   ChargeStatus = "PARTIAL"   // Partially paid, 0 < outstanding < total
	ChargeStatusPaid      ChargeStatus = "PAID"      // Fully paid, outstanding = 0
	ChargeStatusCancelled ChargeStatus = "CANCELLED" // Cancelled before any payment
)

// IsValid checks if the status is a valid ChargeStatus
func (s ChargeStatus) IsValid() bool {
	switch s {
	case ChargeStatusUnpaid, ChargeStatusPartial, ChargeStatusPaid, ChargeStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ChargeStatus
func (s ChargeStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the charge is in a terminal state
func (s ChargeStatus) IsTerminal() bool {
	return s == ChargeStatusPaid || s == ChargeStatusCancelled
}

// CanApplyPayment returns true if payments can be applied in this status
func (s ChargeStatus) CanApplyPayment() bool {
	return s == ChargeStatusUnpaid || s == ChargeStatusPartial
}

// ChargeCategory classifies what a charge was raised for
type ChargeCategory string

const (
	ChargeCategoryInitialFee ChargeCategory = "INITIAL_FEE" // Contract signing fee, collected out-of-band
	ChargeCategoryRentalRate ChargeCategory = "RENTAL_RATE" // Periodic rental instalment
	ChargeCategoryMileage    ChargeCategory = "MILEAGE"     // Excess mileage charge
	ChargeCategoryFine       ChargeCategory = "FINE"        // Traffic or parking fine passed through
	ChargeCategoryDamage     ChargeCategory = "DAMAGE"      // Vehicle damage charge
	ChargeCategoryOther      ChargeCategory = "OTHER"
)

// IsValid checks if the category is valid
func (c ChargeCategory) IsValid() bool {
	switch c {
	case ChargeCategoryInitialFee, ChargeCategoryRentalRate, ChargeCategoryMileage,
		ChargeCategoryFine, ChargeCategoryDamage, ChargeCategoryOther:
		return true
	}
	return false
}

// String returns the string representation of ChargeCategory
func (c ChargeCategory) String() string {
	return string(c)
}

// BypassesAllocation returns true if the category is settled out-of-band
// and must never receive funds from automatic allocation
func (c ChargeCategory) BypassesAllocation() bool {
	return c == ChargeCategoryInitialFee
}

// PaymentApplication records a slice of a payment applied to this charge.
// It is a value object within the Charge aggregate, stored as JSONB.
type PaymentApplication struct {
	ID        uuid.UUID       `json:"id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	AppliedAt time.Time       `json:"applied_at"`
}

// PaymentApplications is a slice of PaymentApplication that implements GORM Scanner/Valuer for JSONB storage
type PaymentApplications []PaymentApplication

// Value implements driver.Valuer interface for GORM to store as JSONB
func (p PaymentApplications) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (p *PaymentApplications) Scan(value interface{}) error {
	if value == nil {
		*p = PaymentApplications{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentApplications: unsupported type")
	}

	if len(bytes) == 0 {
		*p = PaymentApplications{}
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// NewPaymentApplication creates a new payment application record
func NewPaymentApplication(paymentID uuid.UUID, amount valueobject.Money, appliedAt time.Time) *PaymentApplication {
	return &PaymentApplication{
		ID:        uuid.New(),
		PaymentID: paymentID,
		Amount:    amount.Amount(),
		AppliedAt: appliedAt,
	}
}

// GetAmountMoney returns the applied amount as Money value object
func (p *PaymentApplication) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(p.Amount)
}

// Charge is the debit side of a contract ledger: an amount a customer
// owes for a rental contract. It is an aggregate root.
type Charge struct {
	shared.TenantAggregateRoot
	ChargeNumber      string              `json:"charge_number"`
	ContractID        uuid.UUID           `json:"contract_id"`
	Category          ChargeCategory      `json:"category"`
	Description       string              `json:"description"`
	Amount            decimal.Decimal     `json:"amount"`             // Original amount due
	PaidAmount        decimal.Decimal     `json:"paid_amount"`        // Amount already covered by payments
	OutstandingAmount decimal.Decimal     `json:"outstanding_amount"` // Remaining amount due
	Status            ChargeStatus        `json:"status"`
	DueDate           *time.Time          `json:"due_date"`   // When payment is expected (date precision)
	EntryDate         time.Time           `json:"entry_date"` // When the charge entered the ledger
	Applications      PaymentApplications `json:"applications"`
	PaidAt            *time.Time          `json:"paid_at"`
	CancelledAt       *time.Time          `json:"cancelled_at"`
	CancelReason      string              `json:"cancel_reason"`
}

// NewCharge creates a new charge on a contract ledger
func NewCharge(
	tenantID uuid.UUID,
	chargeNumber string,
	contractID uuid.UUID,
	category ChargeCategory,
	description string,
	amount valueobject.Money,
	dueDate *time.Time,
	entryDate time.Time,
) (*Charge, error) {
	if chargeNumber == "" {
		return nil, shared.NewDomainError("INVALID_CHARGE_NUMBER", "Charge number cannot be empty")
	}
	if len(chargeNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_CHARGE_NUMBER", "Charge number cannot exceed 50 characters")
	}
	if contractID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTRACT", "Contract ID cannot be empty")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Charge category is not valid")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Charge amount must be positive")
	}
	if entryDate.IsZero() {
		entryDate = time.Now()
	}

	c := &Charge{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ChargeNumber:        chargeNumber,
		ContractID:          contractID,
		Category:            category,
		Description:         description,
		Amount:              amount.Amount(),
		PaidAmount:          decimal.Zero,
		OutstandingAmount:   amount.Amount(),
		Status:              ChargeStatusUnpaid,
		DueDate:             dueDate,
		EntryDate:           entryDate,
		Applications:        PaymentApplications{},
	}

	c.AddDomainEvent(NewChargeCreatedEvent(c))

	return c, nil
}

// ApplyPayment applies a slice of a payment to the charge.
// Returns an error if the amount exceeds outstanding or the charge is in a terminal state.
func (c *Charge) ApplyPayment(amount valueobject.Money, paymentID uuid.UUID, appliedAt time.Time) error {
	if !c.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to charge in %s status", c.Status))
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.Amount().GreaterThan(c.OutstandingAmount) {
		return shared.NewDomainError("EXCEEDS_OUTSTANDING", fmt.Sprintf("Payment amount %s exceeds outstanding amount %s", amount.Amount().StringFixed(2), c.OutstandingAmount.StringFixed(2)))
	}
	if paymentID == uuid.Nil {
		return shared.NewDomainError("INVALID_PAYMENT", "Payment ID cannot be empty")
	}

	application := NewPaymentApplication(paymentID, amount, appliedAt)
	c.Applications = append(c.Applications, *application)

	c.PaidAmount = c.PaidAmount.Add(amount.Amount())
	c.OutstandingAmount = c.Amount.Sub(c.PaidAmount)

	if c.OutstandingAmount.IsZero() {
		c.Status = ChargeStatusPaid
		c.PaidAt = &appliedAt
		c.AddDomainEvent(NewChargeSettledEvent(c))
	} else {
		c.Status = ChargeStatusPartial
		c.AddDomainEvent(NewChargePaymentAppliedEvent(c, amount, paymentID))
	}

	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// Cancel cancels the charge (only while no payments have been applied)
func (c *Charge) Cancel(reason string) error {
	if c.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel charge in %s status", c.Status))
	}
	if c.Status == ChargeStatusPartial || c.PaidAmount.GreaterThan(decimal.Zero) {
		return shared.NewDomainError("HAS_PAYMENTS", "Cannot cancel charge with applied payments")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	c.Status = ChargeStatusCancelled
	c.CancelledAt = &now
	c.CancelReason = reason
	c.OutstandingAmount = decimal.Zero
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewChargeCancelledEvent(c))

	return nil
}

// SetDueDate updates the due date
func (c *Charge) SetDueDate(dueDate *time.Time) error {
	if c.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot modify due date for charge in terminal state")
	}

	c.DueDate = dueDate
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// Helper methods

// GetAmountMoney returns the charge amount as Money
func (c *Charge) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(c.Amount)
}

// GetPaidAmountMoney returns the paid amount as Money
func (c *Charge) GetPaidAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(c.PaidAmount)
}

// GetOutstandingAmountMoney returns the outstanding amount as Money
func (c *Charge) GetOutstandingAmountMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(c.OutstandingAmount)
}

// IsUnpaid returns true if no payment has been applied yet
func (c *Charge) IsUnpaid() bool {
	return c.Status == ChargeStatusUnpaid
}

// IsPartial returns true if the charge is partially paid
func (c *Charge) IsPartial() bool {
	return c.Status == ChargeStatusPartial
}

// IsPaid returns true if the charge is fully paid
func (c *Charge) IsPaid() bool {
	return c.Status == ChargeStatusPaid
}

// IsCancelled returns true if the charge is cancelled
func (c *Charge) IsCancelled() bool {
	return c.Status == ChargeStatusCancelled
}

// IsOpen returns true if the charge still carries an outstanding amount
func (c *Charge) IsOpen() bool {
	return c.Status.CanApplyPayment()
}

// IsOverdue returns true if the charge is past its due date and not settled
func (c *Charge) IsOverdue(asOf time.Time) bool {
	if c.Status.IsTerminal() {
		return false
	}
	if c.DueDate == nil {
		return false
	}
	return truncateToDay(asOf).After(truncateToDay(*c.DueDate))
}

// DaysUntilDue returns the number of calendar days between asOf and the due
// date: positive before the due date, zero on it, negative after.
// The second return value is false when the charge has no due date.
func (c *Charge) DaysUntilDue(asOf time.Time) (int, bool) {
	if c.DueDate == nil {
		return 0, false
	}
	return daysBetween(truncateToDay(asOf), truncateToDay(*c.DueDate)), true
}

// ApplicationCount returns the number of payment applications on the charge
func (c *Charge) ApplicationCount() int {
	return len(c.Applications)
}

// truncateToDay drops the time-of-day component, keeping the location
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole calendar days from a to b. Both dates are
// re-anchored to UTC midnight first so a DST transition between them
// cannot shrink the gap to 23 or 47 hours and skew the count.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}
