package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceCategory is the settlement state of a contract ledger
type BalanceCategory string

const (
	BalanceCategorySettled  BalanceCategory = "SETTLED"   // Balance is exactly zero
	BalanceCategoryInDebt   BalanceCategory = "IN_DEBT"   // Charges exceed payments
	BalanceCategoryInCredit BalanceCategory = "IN_CREDIT" // Payments exceed charges
)

// String returns the string representation of BalanceCategory
func (c BalanceCategory) String() string {
	return string(c)
}

// Balance is the derived financial position of a contract ledger.
// Sign convention: charges count positive, payments negative, so a
// positive balance means the customer owes money.
type Balance struct {
	ContractID   string          `json:"contract_id"`
	TotalCharged decimal.Decimal `json:"total_charged"` // Sum of non-cancelled charge amounts
	TotalPaid    decimal.Decimal `json:"total_paid"`    // Sum of payment amounts
	Balance      decimal.Decimal `json:"balance"`       // TotalCharged - TotalPaid
	Category     BalanceCategory `json:"category"`
	AsOf         time.Time       `json:"as_of"`
}

// BalanceCalculator derives contract balances from ledger entries.
// It is a pure domain service: no repository access, no clock.
type BalanceCalculator struct{}

// NewBalanceCalculator creates a new balance calculator
func NewBalanceCalculator() *BalanceCalculator {
	return &BalanceCalculator{}
}

// Calculate derives the balance from charge and payment totals
func (bc *BalanceCalculator) Calculate(contractID string, totalCharged, totalPaid decimal.Decimal, asOf time.Time) Balance {
	balance := totalCharged.Sub(totalPaid)
	return Balance{
		ContractID:   contractID,
		TotalCharged: totalCharged,
		TotalPaid:    totalPaid,
		Balance:      balance,
		Category:     bc.Categorize(balance),
		AsOf:         asOf,
	}
}

// CalculateFromEntries derives the balance by summing the given ledger
// entries. Cancelled charges are excluded from the charge side.
func (bc *BalanceCalculator) CalculateFromEntries(contractID string, charges []Charge, payments []Payment, asOf time.Time) Balance {
	totalCharged := decimal.Zero
	for _, c := range charges {
		if c.IsCancelled() {
			continue
		}
		totalCharged = totalCharged.Add(c.Amount)
	}

	totalPaid := decimal.Zero
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.Amount)
	}

	return bc.Calculate(contractID, totalCharged, totalPaid, asOf)
}

// Categorize maps a signed balance to its settlement category
func (bc *BalanceCalculator) Categorize(balance decimal.Decimal) BalanceCategory {
	switch {
	case balance.IsZero():
		return BalanceCategorySettled
	case balance.IsPositive():
		return BalanceCategoryInDebt
	default:
		return BalanceCategoryInCredit
	}
}

// CreditAmount returns the credit a contract holds: the magnitude of a
// negative balance, zero otherwise.
func (bc *BalanceCalculator) CreditAmount(balance decimal.Decimal) decimal.Decimal {
	if balance.IsNegative() {
		return balance.Neg()
	}
	return decimal.Zero
}

// Credit returns the credit amount held by the given balance
func (b Balance) Credit() decimal.Decimal {
	if b.Balance.IsNegative() {
		return b.Balance.Neg()
	}
	return decimal.Zero
}

// IsSettled returns true if the ledger balances to exactly zero
func (b Balance) IsSettled() bool {
	return b.Category == BalanceCategorySettled
}
