package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/fleetrent/backend/internal/infrastructure/telemetry"
)

// TransactionManager runs a function inside one database transaction.
// Repository calls made with the context it yields share that
// transaction.
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PaymentService records payments and allocates them to open charges
type PaymentService struct {
	paymentRepo   ledger.PaymentRepository
	chargeRepo    ledger.ChargeRepository
	allocationSvc *ledger.AllocationService
	tx            TransactionManager
	cache         BalanceCache
	publisher     shared.EventPublisher
}

// PaymentServiceOption is a functional option for configuring PaymentService
type PaymentServiceOption func(*PaymentService)

// WithBalanceCache wires balance cache invalidation into the write path
func WithBalanceCache(cache BalanceCache) PaymentServiceOption {
	return func(s *PaymentService) {
		s.cache = cache
	}
}

// WithEventPublisher wires domain event publishing after commit
func WithEventPublisher(publisher shared.EventPublisher) PaymentServiceOption {
	return func(s *PaymentService) {
		s.publisher = publisher
	}
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo ledger.PaymentRepository,
	chargeRepo ledger.ChargeRepository,
	tx TransactionManager,
	opts ...PaymentServiceOption,
) *PaymentService {
	s := &PaymentService{
		paymentRepo:   paymentRepo,
		chargeRepo:    chargeRepo,
		allocationSvc: ledger.NewAllocationService(),
		tx:            tx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordPaymentRequest represents a request to record and allocate a payment
type RecordPaymentRequest struct {
	PaymentID  uuid.UUID       `json:"payment_id" binding:"required"` // Caller-supplied, the idempotency key
	ContractID uuid.UUID       `json:"contract_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Method     string          `json:"method" binding:"required"`
	Purpose    string          `json:"purpose" binding:"omitempty,oneof=GENERAL INITIAL_FEE"` // Defaults to GENERAL
	Reference  string          `json:"reference"`
	ReceivedAt *time.Time      `json:"received_at"`
}

// AllocationView represents one allocation made by a payment
type AllocationView struct {
	ChargeID     uuid.UUID       `json:"charge_id"`
	ChargeNumber string          `json:"charge_number"`
	Amount       decimal.Decimal `json:"amount"`
}

// PaymentResult represents the outcome of recording a payment
type PaymentResult struct {
	Success          bool             `json:"success"`
	PaymentID        uuid.UUID        `json:"payment_id"`
	PaymentNumber    string           `json:"payment_number"`
	ContractID       uuid.UUID        `json:"contract_id"`
	Allocated        decimal.Decimal  `json:"allocated"`
	Remaining        decimal.Decimal  `json:"remaining"`
	Status           string           `json:"status"`
	AlreadyProcessed bool             `json:"already_processed"`
	Allocations      []AllocationView `json:"allocations"`
}

// RecordPayment records a payment and allocates it to the contract's open
// charges, oldest due date first. The whole operation runs in one
// database transaction. Re-sending the same payment ID returns the stored
// outcome instead of allocating twice.
func (s *PaymentService) RecordPayment(ctx context.Context, tenantID uuid.UUID, req RecordPaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "record_payment")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, req.PaymentID.String(),
		telemetry.SpanAttrContractID, req.ContractID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	if req.PaymentID == uuid.Nil {
		err := shared.NewDomainError("INVALID_PAYMENT_ID", "Payment ID is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	method := ledger.PaymentMethod(req.Method)
	if !method.IsValid() {
		err := shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Payment method %q is not valid", req.Method))
		telemetry.RecordError(span, err)
		return nil, err
	}

	purpose := ledger.PaymentPurposeGeneral
	if req.Purpose != "" {
		purpose = ledger.PaymentPurpose(req.Purpose)
		if !purpose.IsValid() {
			err := shared.NewDomainError("INVALID_PAYMENT_PURPOSE", fmt.Sprintf("Payment purpose %q is not valid", req.Purpose))
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	var result *PaymentResult
	var settled *ledger.Payment
	var touchedCharges []ledger.Charge

	err := s.tx.InTransaction(ctx, func(txCtx context.Context) error {
		// Idempotency: a payment ID we have seen before returns the stored
		// outcome without touching the ledger again.
		existing, err := s.paymentRepo.FindByIDForTenant(txCtx, tenantID, req.PaymentID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = toPaymentResult(existing, true)
			return nil
		}

		paymentNumber, err := s.paymentRepo.GeneratePaymentNumber(txCtx, tenantID)
		if err != nil {
			return fmt.Errorf("failed to generate payment number: %w", err)
		}

		receivedAt := time.Now()
		if req.ReceivedAt != nil {
			receivedAt = *req.ReceivedAt
		}

		payment, err := ledger.NewPaymentWithID(req.PaymentID, tenantID, paymentNumber, req.ContractID,
			valueobject.NewMoneyEUR(req.Amount), method, receivedAt)
		if err != nil {
			return err
		}
		if purpose != ledger.PaymentPurposeGeneral {
			if err := payment.SetPurpose(purpose); err != nil {
				return err
			}
		}
		if req.Reference != "" {
			if err := payment.SetReference(req.Reference); err != nil {
				return err
			}
		}

		charges, err := s.chargeRepo.FindOpenByContract(txCtx, tenantID, req.ContractID)
		if err != nil {
			return fmt.Errorf("failed to load open charges: %w", err)
		}

		allocResult, err := s.allocationSvc.AllocatePayment(txCtx, ledger.AllocatePaymentRequest{
			Payment: payment,
			Charges: charges,
			Now:     receivedAt,
		})
		if err != nil {
			return err
		}

		for i := range allocResult.UpdatedCharges {
			if err := s.chargeRepo.SaveWithLock(txCtx, &allocResult.UpdatedCharges[i]); err != nil {
				return fmt.Errorf("failed to save charge %s: %w", allocResult.UpdatedCharges[i].ChargeNumber, err)
			}
		}
		if err := s.paymentRepo.Save(txCtx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		settled = payment
		touchedCharges = allocResult.UpdatedCharges
		result = toPaymentResult(payment, false)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !result.AlreadyProcessed {
		s.invalidateBalance(ctx, tenantID, req.ContractID)
		s.publishEvents(ctx, settled, touchedCharges)
	}

	return result, nil
}

// GetPayment returns a single payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, tenantID, id uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}
	return toPaymentResponse(payment), nil
}

// ListPayments returns payments for a tenant with filtering and pagination
func (s *PaymentService) ListPayments(ctx context.Context, tenantID uuid.UUID, filter ledger.PaymentFilter) ([]PaymentResponse, int64, error) {
	payments, err := s.paymentRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.paymentRepo.CountForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = *toPaymentResponse(&payments[i])
	}
	return responses, total, nil
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                uuid.UUID        `json:"id"`
	TenantID          uuid.UUID        `json:"tenant_id"`
	PaymentNumber     string           `json:"payment_number"`
	ContractID        uuid.UUID        `json:"contract_id"`
	Amount            decimal.Decimal  `json:"amount"`
	AllocatedAmount   decimal.Decimal  `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal  `json:"unallocated_amount"`
	Method            string           `json:"method"`
	Purpose           string           `json:"purpose"`
	Reference         string           `json:"reference,omitempty"`
	Status            string           `json:"status"`
	ReceivedAt        time.Time        `json:"received_at"`
	AllocatedAt       *time.Time       `json:"allocated_at,omitempty"`
	Allocations       []AllocationView `json:"allocations,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func toAllocationViews(allocations ledger.ChargeAllocations) []AllocationView {
	views := make([]AllocationView, len(allocations))
	for i, a := range allocations {
		views[i] = AllocationView{
			ChargeID:     a.ChargeID,
			ChargeNumber: a.ChargeNumber,
			Amount:       a.Amount,
		}
	}
	return views
}

func toPaymentResponse(p *ledger.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                p.ID,
		TenantID:          p.TenantID,
		PaymentNumber:     p.PaymentNumber,
		ContractID:        p.ContractID,
		Amount:            p.Amount,
		AllocatedAmount:   p.AllocatedAmount,
		UnallocatedAmount: p.UnallocatedAmount,
		Method:            p.Method.String(),
		Purpose:           p.Purpose.String(),
		Reference:         p.Reference,
		Status:            p.Status.String(),
		ReceivedAt:        p.ReceivedAt,
		AllocatedAt:       p.AllocatedAt,
		Allocations:       toAllocationViews(p.Allocations),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toPaymentResult(p *ledger.Payment, alreadyProcessed bool) *PaymentResult {
	return &PaymentResult{
		Success:          true,
		PaymentID:        p.ID,
		PaymentNumber:    p.PaymentNumber,
		ContractID:       p.ContractID,
		Allocated:        p.AllocatedAmount,
		Remaining:        p.UnallocatedAmount,
		Status:           p.Status.String(),
		AlreadyProcessed: alreadyProcessed,
		Allocations:      toAllocationViews(p.Allocations),
	}
}

func (s *PaymentService) invalidateBalance(ctx context.Context, tenantID, contractID uuid.UUID) {
	if s.cache == nil {
		return
	}
	_ = s.cache.InvalidateBalance(ctx, tenantID, contractID)
}

func (s *PaymentService) publishEvents(ctx context.Context, payment *ledger.Payment, charges []ledger.Charge) {
	if s.publisher == nil || payment == nil {
		return
	}
	for _, event := range payment.GetDomainEvents() {
		// Event delivery is best-effort, the ledger write already committed
		_ = s.publisher.Publish(ctx, event)
	}
	payment.ClearDomainEvents()

	// Charges updated by the allocation run carry their own events
	for i := range charges {
		for _, event := range charges[i].GetDomainEvents() {
			_ = s.publisher.Publish(ctx, event)
		}
		charges[i].ClearDomainEvents()
	}
}
