package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationService is a domain service that coordinates applying a payment
// to the open charges of its contract using an allocation strategy.
// It ensures that:
// 1. The payment has not been allocated before
// 2. Allocations never exceed outstanding amounts
// 3. Payment and charge state are updated consistently
type AllocationService struct {
	strategy           AllocationStrategy
	initialFeeStrategy AllocationStrategy
}

// AllocationServiceOption is a functional option for configuring AllocationService
type AllocationServiceOption func(*AllocationService)

// WithStrategy overrides the allocation strategy
func WithStrategy(s AllocationStrategy) AllocationServiceOption {
	return func(svc *AllocationService) {
		if s != nil {
			svc.strategy = s
		}
	}
}

// NewAllocationService creates a new allocation service, FIFO by default.
// Payments marked for the initial fee are routed to the initial-fee
// strategy instead.
func NewAllocationService(opts ...AllocationServiceOption) *AllocationService {
	svc := &AllocationService{
		strategy:           NewFIFOAllocationStrategy(),
		initialFeeStrategy: NewInitialFeeAllocationStrategy(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Strategy returns the configured general allocation strategy
func (s *AllocationService) Strategy() AllocationStrategy {
	return s.strategy
}

// strategyFor picks the strategy matching the payment's purpose
func (s *AllocationService) strategyFor(p *Payment) AllocationStrategy {
	if p.Purpose == PaymentPurposeInitialFee {
		return s.initialFeeStrategy
	}
	return s.strategy
}

// AllocatePaymentRequest represents a request to allocate a payment
type AllocatePaymentRequest struct {
	Payment *Payment
	Charges []Charge
	Now     time.Time
}

// AllocatePaymentResult represents the outcome of an allocation run
type AllocatePaymentResult struct {
	Payment         *Payment           // Updated payment with recorded allocations
	UpdatedCharges  []Charge           // Charges that received funds
	Allocations     []ChargeAllocation // Allocations that were made
	TotalAllocated  decimal.Decimal    // Total amount applied to charges
	RemainingAmount decimal.Decimal    // Amount held as contract credit
	FullyAllocated  bool               // True if the whole payment found charges
	ChargesSettled  []uuid.UUID        // Charges fully paid by this run
	ChargesPartial  []uuid.UUID        // Charges partially paid by this run
}

// AllocatePayment runs the strategy over the contract's open charges and
// applies the resulting plan to both sides of the ledger.
func (s *AllocationService) AllocatePayment(ctx context.Context, req AllocatePaymentRequest) (*AllocatePaymentResult, error) {
	if req.Payment == nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment cannot be nil")
	}
	if !req.Payment.Status.CanAllocate() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot allocate payment in %s status, must be RECEIVED", req.Payment.Status))
	}
	if req.Payment.UnallocatedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("NO_UNALLOCATED", "Payment has no unallocated amount")
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	// Only this contract's open charges are eligible
	contractCharges := make([]Charge, 0, len(req.Charges))
	for _, c := range req.Charges {
		if c.ContractID == req.Payment.ContractID &&
			c.Status.CanApplyPayment() &&
			c.OutstandingAmount.GreaterThan(decimal.Zero) {
			contractCharges = append(contractCharges, c)
		}
	}

	plan, err := s.strategyFor(req.Payment).Allocate(req.Payment.GetUnallocatedAmountMoney(), TargetsFromCharges(contractCharges))
	if err != nil {
		return nil, err
	}

	chargeMap := make(map[uuid.UUID]*Charge)
	for i := range contractCharges {
		chargeMap[contractCharges[i].ID] = &contractCharges[i]
	}

	updatedCharges := make([]Charge, 0)
	allocations := make([]ChargeAllocation, 0)

	for _, alloc := range plan.Allocations {
		charge, exists := chargeMap[alloc.TargetID]
		if !exists {
			continue
		}

		allocAmount := valueobject.NewMoneyEUR(alloc.Amount)

		allocation, err := req.Payment.RecordAllocation(charge.ID, charge.ChargeNumber, allocAmount, now)
		if err != nil {
			return nil, fmt.Errorf("failed to record allocation to charge %s: %w", charge.ChargeNumber, err)
		}
		allocations = append(allocations, *allocation)

		if err := charge.ApplyPayment(allocAmount, req.Payment.ID, now); err != nil {
			return nil, fmt.Errorf("failed to apply payment to charge %s: %w", charge.ChargeNumber, err)
		}
		updatedCharges = append(updatedCharges, *charge)
	}

	if err := req.Payment.FinalizeAllocation(now); err != nil {
		return nil, err
	}

	return &AllocatePaymentResult{
		Payment:         req.Payment,
		UpdatedCharges:  updatedCharges,
		Allocations:     allocations,
		TotalAllocated:  plan.TotalAllocated,
		RemainingAmount: plan.RemainingAmount,
		FullyAllocated:  plan.FullyAllocated,
		ChargesSettled:  plan.ChargesSettled,
		ChargesPartial:  plan.ChargesPartial,
	}, nil
}

// PreviewAllocation calculates what allocations would be made without applying them
func (s *AllocationService) PreviewAllocation(ctx context.Context, payment *Payment, charges []Charge) (*AllocationPlan, error) {
	if payment == nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment cannot be nil")
	}
	if payment.UnallocatedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("NO_UNALLOCATED", "Payment has no unallocated amount")
	}

	contractCharges := make([]Charge, 0, len(charges))
	for _, c := range charges {
		if c.ContractID == payment.ContractID &&
			c.Status.CanApplyPayment() &&
			c.OutstandingAmount.GreaterThan(decimal.Zero) {
			contractCharges = append(contractCharges, c)
		}
	}

	return s.strategyFor(payment).Allocate(payment.GetUnallocatedAmountMoney(), TargetsFromCharges(contractCharges))
}
