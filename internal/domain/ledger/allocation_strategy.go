package ledger

import (
	"bytes"
	"sort"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/strategy"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationStrategyType defines the type of allocation strategy
type AllocationStrategyType string

const (
	AllocationStrategyTypeFIFO       AllocationStrategyType = "FIFO"        // Oldest due date first
	AllocationStrategyTypeInitialFee AllocationStrategyType = "INITIAL_FEE" // Initial-fee charges only
)

// IsValid checks if the strategy type is valid
func (t AllocationStrategyType) IsValid() bool {
	return t == AllocationStrategyTypeFIFO || t == AllocationStrategyTypeInitialFee
}

// String returns the string representation
func (t AllocationStrategyType) String() string {
	return string(t)
}

// AllocationTarget represents an open charge that can receive payment funds
type AllocationTarget struct {
	ID                uuid.UUID       // Charge ID
	Number            string          // Charge number for display purposes
	Category          ChargeCategory  // Category, used to exclude out-of-band charges
	OutstandingAmount decimal.Decimal // Amount still outstanding
	DueDate           *time.Time      // Due date for FIFO ordering
	EntryDate         time.Time       // Ledger entry date as fallback ordering
}

// Allocation represents a single planned allocation to a charge
type Allocation struct {
	TargetID     uuid.UUID       // Charge ID
	TargetNumber string          // Charge number
	Amount       decimal.Decimal // Amount to allocate
}

// AllocationPlan represents the complete result of an allocation strategy
type AllocationPlan struct {
	Allocations       []Allocation    // List of allocations to make
	TotalAllocated    decimal.Decimal // Total amount allocated
	RemainingAmount   decimal.Decimal // Amount left unallocated (held as credit)
	FullyAllocated    bool            // True if the whole amount found a charge
	ChargesSettled    []uuid.UUID     // Charges that will be fully paid
	ChargesPartial    []uuid.UUID     // Charges that will be partially paid
	SkippedByCategory []uuid.UUID     // Charges excluded because their category bypasses allocation
}

// AllocationStrategy decides how a payment amount is spread across open charges
type AllocationStrategy interface {
	strategy.Strategy
	// StrategyType returns the allocation strategy type
	StrategyType() AllocationStrategyType
	// Allocate calculates how to allocate the given amount across targets
	Allocate(amount valueobject.Money, targets []AllocationTarget) (*AllocationPlan, error)
}

// FIFOAllocationStrategy allocates payments to the oldest open charges first:
// ascending due date with nil due dates last, then entry date, then ID so the
// order is total and deterministic.
type FIFOAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOAllocationStrategy creates a new FIFO allocation strategy
func NewFIFOAllocationStrategy() *FIFOAllocationStrategy {
	return &FIFOAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo_allocation",
			strategy.StrategyTypeAllocation,
			"FIFO allocation strategy - allocates to the oldest open charges first by due date, then entry date",
		),
	}
}

// StrategyType returns the allocation strategy type
func (s *FIFOAllocationStrategy) StrategyType() AllocationStrategyType {
	return AllocationStrategyTypeFIFO
}

// Allocate allocates the amount to targets in FIFO order (oldest first).
// Targets whose category bypasses allocation are skipped entirely.
func (s *FIFOAllocationStrategy) Allocate(amount valueobject.Money, targets []AllocationTarget) (*AllocationPlan, error) {
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}

	skipped := make([]uuid.UUID, 0)
	eligible := make([]AllocationTarget, 0, len(targets))
	for _, target := range targets {
		if target.Category.BypassesAllocation() {
			skipped = append(skipped, target.ID)
			continue
		}
		eligible = append(eligible, target)
	}

	return allocateOldestFirst(amount.Amount(), eligible, skipped), nil
}

// InitialFeeAllocationStrategy settles a contract's initial-fee charges.
// It is the inverse of FIFO's category filter: only charges whose
// category bypasses general allocation are eligible, everything else
// is skipped.
type InitialFeeAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewInitialFeeAllocationStrategy creates a new initial-fee allocation strategy
func NewInitialFeeAllocationStrategy() *InitialFeeAllocationStrategy {
	return &InitialFeeAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"initial_fee_allocation",
			strategy.StrategyTypeAllocation,
			"Initial-fee allocation strategy - allocates only to the contract's initial-fee charges",
		),
	}
}

// StrategyType returns the allocation strategy type
func (s *InitialFeeAllocationStrategy) StrategyType() AllocationStrategyType {
	return AllocationStrategyTypeInitialFee
}

// Allocate allocates the amount to initial-fee charges only, oldest first.
func (s *InitialFeeAllocationStrategy) Allocate(amount valueobject.Money, targets []AllocationTarget) (*AllocationPlan, error) {
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}

	skipped := make([]uuid.UUID, 0)
	eligible := make([]AllocationTarget, 0, len(targets))
	for _, target := range targets {
		if !target.Category.BypassesAllocation() {
			skipped = append(skipped, target.ID)
			continue
		}
		eligible = append(eligible, target)
	}

	return allocateOldestFirst(amount.Amount(), eligible, skipped), nil
}

// allocateOldestFirst builds the plan shared by both strategies: sort the
// eligible targets oldest first and fill them greedily until the amount
// runs out.
func allocateOldestFirst(amount decimal.Decimal, eligible []AllocationTarget, skipped []uuid.UUID) *AllocationPlan {
	if len(eligible) == 0 {
		return &AllocationPlan{
			Allocations:       make([]Allocation, 0),
			TotalAllocated:    decimal.Zero,
			RemainingAmount:   amount,
			FullyAllocated:    false,
			ChargesSettled:    make([]uuid.UUID, 0),
			ChargesPartial:    make([]uuid.UUID, 0),
			SkippedByCategory: skipped,
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		// Due date first, nil due dates go to the end
		if eligible[i].DueDate != nil && eligible[j].DueDate != nil {
			if !eligible[i].DueDate.Equal(*eligible[j].DueDate) {
				return eligible[i].DueDate.Before(*eligible[j].DueDate)
			}
		} else if eligible[i].DueDate != nil {
			return true
		} else if eligible[j].DueDate != nil {
			return false
		}
		// Then ledger entry date
		if !eligible[i].EntryDate.Equal(eligible[j].EntryDate) {
			return eligible[i].EntryDate.Before(eligible[j].EntryDate)
		}
		// Finally ID, to make the order total
		return bytes.Compare(eligible[i].ID[:], eligible[j].ID[:]) < 0
	})

	allocations := make([]Allocation, 0)
	settled := make([]uuid.UUID, 0)
	partial := make([]uuid.UUID, 0)
	remaining := amount
	totalAllocated := decimal.Zero

	for _, target := range eligible {
		if remaining.IsZero() {
			break
		}
		if target.OutstandingAmount.LessThanOrEqual(decimal.Zero) {
			continue
		}

		allocAmount := decimal.Min(remaining, target.OutstandingAmount)

		allocations = append(allocations, Allocation{
			TargetID:     target.ID,
			TargetNumber: target.Number,
			Amount:       allocAmount,
		})

		totalAllocated = totalAllocated.Add(allocAmount)
		remaining = remaining.Sub(allocAmount)

		if allocAmount.GreaterThanOrEqual(target.OutstandingAmount) {
			settled = append(settled, target.ID)
		} else {
			partial = append(partial, target.ID)
		}
	}

	return &AllocationPlan{
		Allocations:       allocations,
		TotalAllocated:    totalAllocated,
		RemainingAmount:   remaining,
		FullyAllocated:    remaining.IsZero(),
		ChargesSettled:    settled,
		ChargesPartial:    partial,
		SkippedByCategory: skipped,
	}
}

// TargetsFromCharges converts open charges to allocation targets.
// Charges that cannot receive payments are filtered out here; category
// exclusion happens inside the strategy so it is covered by the plan.
func TargetsFromCharges(charges []Charge) []AllocationTarget {
	targets := make([]AllocationTarget, 0, len(charges))
	for _, c := range charges {
		if c.Status.CanApplyPayment() && c.OutstandingAmount.GreaterThan(decimal.Zero) {
			targets = append(targets, AllocationTarget{
				ID:                c.ID,
				Number:            c.ChargeNumber,
				Category:          c.Category,
				OutstandingAmount: c.OutstandingAmount,
				DueDate:           c.DueDate,
				EntryDate:         c.EntryDate,
			})
		}
	}
	return targets
}
