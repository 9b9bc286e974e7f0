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

// ChargeService provides application-level charge operations
type ChargeService struct {
	chargeRepo ledger.ChargeRepository
	cache      BalanceCache
	publisher  shared.EventPublisher
}

// ChargeServiceOption is a functional option for configuring ChargeService
type ChargeServiceOption func(*ChargeService)

// WithChargeEventPublisher wires domain event publishing after charge writes
func WithChargeEventPublisher(publisher shared.EventPublisher) ChargeServiceOption {
	return func(s *ChargeService) {
		s.publisher = publisher
	}
}

// NewChargeService creates a new ChargeService
func NewChargeService(chargeRepo ledger.ChargeRepository, cache BalanceCache, opts ...ChargeServiceOption) *ChargeService {
	s := &ChargeService{
		chargeRepo: chargeRepo,
		cache:      cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChargeResponse represents a charge in API responses
type ChargeResponse struct {
	ID                uuid.UUID                 `json:"id"`
	TenantID          uuid.UUID                 `json:"tenant_id"`
	ChargeNumber      string                    `json:"charge_number"`
	ContractID        uuid.UUID                 `json:"contract_id"`
	Category          string                    `json:"category"`
	Description       string                    `json:"description,omitempty"`
	Amount            decimal.Decimal           `json:"amount"`
	PaidAmount        decimal.Decimal           `json:"paid_amount"`
	OutstandingAmount decimal.Decimal           `json:"outstanding_amount"`
	Status            string                    `json:"status"`
	DueDate           *time.Time                `json:"due_date,omitempty"`
	EntryDate         time.Time                 `json:"entry_date"`
	Applications      []PaymentApplicationView  `json:"applications,omitempty"`
	PaidAt            *time.Time                `json:"paid_at,omitempty"`
	CancelledAt       *time.Time                `json:"cancelled_at,omitempty"`
	CancelReason      string                    `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

// PaymentApplicationView represents one payment applied to a charge
type PaymentApplicationView struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	AppliedAt time.Time       `json:"applied_at"`
}

func toChargeResponse(c *ledger.Charge) *ChargeResponse {
	applications := make([]PaymentApplicationView, len(c.Applications))
	for i, a := range c.Applications {
		applications[i] = PaymentApplicationView{
			PaymentID: a.PaymentID,
			Amount:    a.Amount,
			AppliedAt: a.AppliedAt,
		}
	}
	return &ChargeResponse{
		ID:                c.ID,
		TenantID:          c.TenantID,
		ChargeNumber:      c.ChargeNumber,
		ContractID:        c.ContractID,
		Category:          c.Category.String(),
		Description:       c.Description,
		Amount:            c.Amount,
		PaidAmount:        c.PaidAmount,
		OutstandingAmount: c.OutstandingAmount,
		Status:            c.Status.String(),
		DueDate:           c.DueDate,
		EntryDate:         c.EntryDate,
		Applications:      applications,
		PaidAt:            c.PaidAt,
		CancelledAt:       c.CancelledAt,
		CancelReason:      c.CancelReason,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// CreateChargeRequest represents a request to create a charge
type CreateChargeRequest struct {
	ContractID  uuid.UUID       `json:"contract_id" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	DueDate     *time.Time      `json:"due_date"`
	EntryDate   *time.Time      `json:"entry_date"`
}

// CreateCharge creates a new charge on a contract ledger
func (s *ChargeService) CreateCharge(ctx context.Context, tenantID uuid.UUID, req CreateChargeRequest) (*ChargeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_charge")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrContractID, req.ContractID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	category := ledger.ChargeCategory(req.Category)
	if !category.IsValid() {
		err := shared.NewDomainError("INVALID_CATEGORY", fmt.Sprintf("Charge category %q is not valid", req.Category))
		telemetry.RecordError(span, err)
		return nil, err
	}

	entryDate := time.Now()
	if req.EntryDate != nil {
		entryDate = *req.EntryDate
	}

	chargeNumber, err := s.chargeRepo.GenerateChargeNumber(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to generate charge number: %w", err)
	}

	amount := valueobject.NewMoneyEUR(req.Amount)

	charge, err := ledger.NewCharge(tenantID, chargeNumber, req.ContractID, category, req.Description, amount, req.DueDate, entryDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.chargeRepo.Save(ctx, charge); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save charge: %w", err)
	}

	s.invalidateBalance(ctx, tenantID, req.ContractID)
	s.publishEvents(ctx, charge)

	return toChargeResponse(charge), nil
}

// GetCharge returns a single charge by ID
func (s *ChargeService) GetCharge(ctx context.Context, tenantID, id uuid.UUID) (*ChargeResponse, error) {
	charge, err := s.chargeRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if charge == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Charge not found")
	}
	return toChargeResponse(charge), nil
}

// ListCharges returns charges for a tenant with filtering and pagination
func (s *ChargeService) ListCharges(ctx context.Context, tenantID uuid.UUID, filter ledger.ChargeFilter) ([]ChargeResponse, int64, error) {
	charges, err := s.chargeRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.chargeRepo.CountForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]ChargeResponse, len(charges))
	for i := range charges {
		responses[i] = *toChargeResponse(&charges[i])
	}
	return responses, total, nil
}

// CancelCharge cancels an unpaid charge
func (s *ChargeService) CancelCharge(ctx context.Context, tenantID, id uuid.UUID, reason string) (*ChargeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "cancel_charge")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrChargeID, id.String())

	charge, err := s.chargeRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if charge == nil {
		err := shared.NewDomainError("NOT_FOUND", "Charge not found")
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := charge.Cancel(reason); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.chargeRepo.SaveWithLock(ctx, charge); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save charge: %w", err)
	}

	s.invalidateBalance(ctx, tenantID, charge.ContractID)
	s.publishEvents(ctx, charge)

	return toChargeResponse(charge), nil
}

// invalidateBalance drops the cached balance for a contract, if caching is on
func (s *ChargeService) invalidateBalance(ctx context.Context, tenantID, contractID uuid.UUID) {
	if s.cache == nil {
		return
	}
	// Cache invalidation failures never fail the write path
	_ = s.cache.InvalidateBalance(ctx, tenantID, contractID)
}

// publishEvents flushes the charge's queued events, best effort
func (s *ChargeService) publishEvents(ctx context.Context, charge *ledger.Charge) {
	if s.publisher == nil || charge == nil {
		return
	}
	for _, event := range charge.GetDomainEvents() {
		_ = s.publisher.Publish(ctx, event)
	}
	charge.ClearDomainEvents()
}
