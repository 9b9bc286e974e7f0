package ledger

import (
	"context"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeFilter defines filtering options for charge queries
type ChargeFilter struct {
	shared.Filter
	ContractID *uuid.UUID       // Filter by contract
	Status     *ChargeStatus    // Filter by status
	Category   *ChargeCategory  // Filter by category
	FromDate   *time.Time       // Filter by entry date range start
	ToDate     *time.Time       // Filter by entry date range end
	DueFrom    *time.Time       // Filter by due date range start
	DueTo      *time.Time       // Filter by due date range end
	Overdue    *bool            // Filter only overdue charges
	MinAmount  *decimal.Decimal // Filter by minimum outstanding amount
	MaxAmount  *decimal.Decimal // Filter by maximum outstanding amount
}

// ChargeRepository defines the interface for charge persistence
type ChargeRepository interface {
	// FindByID finds a charge by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Charge, error)

	// FindByIDForTenant finds a charge by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Charge, error)

	// FindByChargeNumber finds by charge number for a tenant
	FindByChargeNumber(ctx context.Context, tenantID uuid.UUID, chargeNumber string) (*Charge, error)

	// FindAllForTenant finds all charges for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ChargeFilter) ([]Charge, error)

	// FindByContract finds charges for a contract
	FindByContract(ctx context.Context, tenantID, contractID uuid.UUID, filter ChargeFilter) ([]Charge, error)

	// FindOpenByContract finds all open (unpaid or partial) charges for a
	// contract, ordered by due date ascending with null due dates last,
	// then entry date, then id
	FindOpenByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]Charge, error)

	// FindOpenWithDueDates finds all open charges carrying a due date across
	// a tenant, for reminder classification
	FindOpenWithDueDates(ctx context.Context, tenantID uuid.UUID) ([]Charge, error)

	// Save creates or updates a charge
	Save(ctx context.Context, charge *Charge) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, charge *Charge) error

	// CountForTenant counts charges for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ChargeFilter) (int64, error)

	// SumByContract calculates the total non-cancelled charge amount for a contract
	SumByContract(ctx context.Context, tenantID, contractID uuid.UUID) (decimal.Decimal, error)

	// SumOutstandingByContract calculates the total outstanding amount for a contract
	SumOutstandingByContract(ctx context.Context, tenantID, contractID uuid.UUID) (decimal.Decimal, error)

	// ExistsByChargeNumber checks if a charge number exists for a tenant
	ExistsByChargeNumber(ctx context.Context, tenantID uuid.UUID, chargeNumber string) (bool, error)

	// ListContractIDs lists the distinct contracts carrying charges for a tenant
	ListContractIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error)

	// GenerateChargeNumber generates a unique charge number for a tenant
	GenerateChargeNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	ContractID *uuid.UUID     // Filter by contract
	Status     *PaymentStatus // Filter by status
	Method     *PaymentMethod // Filter by payment method
	FromDate   *time.Time     // Filter by received date range start
	ToDate     *time.Time     // Filter by received date range end
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByIDForTenant finds a payment by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)

	// FindByPaymentNumber finds by payment number for a tenant
	FindByPaymentNumber(ctx context.Context, tenantID uuid.UUID, paymentNumber string) (*Payment, error)

	// FindAllForTenant finds all payments for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// FindByContract finds payments for a contract
	FindByContract(ctx context.Context, tenantID, contractID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, payment *Payment) error

	// CountForTenant counts payments for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) (int64, error)

	// SumByContract calculates the total payment amount for a contract
	SumByContract(ctx context.Context, tenantID, contractID uuid.UUID) (decimal.Decimal, error)

	// ExistsByID checks if a payment exists, used for idempotent processing
	ExistsByID(ctx context.Context, tenantID, id uuid.UUID) (bool, error)

	// GeneratePaymentNumber generates a unique payment number for a tenant
	GeneratePaymentNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}
