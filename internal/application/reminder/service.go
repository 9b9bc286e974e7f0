package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/fleetrent/backend/internal/domain/reminder"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/infrastructure/logger"
	"github.com/fleetrent/backend/internal/infrastructure/telemetry"
)

// TransactionManager runs a function inside one database transaction.
// Repository calls made with the context it yields share that
// transaction.
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service runs the daily reminder pass over the tenant's open charges
type Service struct {
	chargeRepo  ledger.ChargeRepository
	paymentRepo ledger.PaymentRepository
	eventRepo   reminder.EventRepository
	calculator  *ledger.BalanceCalculator
	policy      reminder.Policy
	publisher   shared.EventPublisher
	tx          TransactionManager
}

// ServiceOption is a functional option for configuring Service
type ServiceOption func(*Service)

// WithEventPublisher wires domain event publishing for emitted reminders
func WithEventPublisher(publisher shared.EventPublisher) ServiceOption {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithTransactionManager makes the scan read its snapshot inside one
// transaction, so charges and credit sums are mutually consistent.
func WithTransactionManager(tx TransactionManager) ServiceOption {
	return func(s *Service) {
		s.tx = tx
	}
}

// NewService creates a new reminder Service
func NewService(
	chargeRepo ledger.ChargeRepository,
	paymentRepo ledger.PaymentRepository,
	eventRepo reminder.EventRepository,
	policy reminder.Policy,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		chargeRepo:  chargeRepo,
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		calculator:  ledger.NewBalanceCalculator(),
		policy:      policy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunResult summarizes one reminder run
type RunResult struct {
	Processed int       `json:"processed"` // Open charges examined
	Emitted   int       `json:"emitted"`   // Reminder events written
	Skipped   int       `json:"skipped"`   // No tier, suppressed, or already emitted
	Failed    int       `json:"failed"`    // Charges that errored, run continued
	Timestamp time.Time `json:"timestamp"`
}

// Run executes one reminder pass for the given calendar day. A charge
// that fails is counted and logged but never aborts the rest of the run,
// and re-running the same day emits nothing new.
func (s *Service) Run(ctx context.Context, tenantID uuid.UUID, today time.Time) (*RunResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reminder", "run")
	defer span.End()

	log := logger.L(ctx).With(zap.String("tenant_id", tenantID.String()), zap.String("run_date", today.Format("2006-01-02")))

	// The snapshot behind suppression decisions is read in one
	// transaction: the open charges and every contract's credit sums
	// come from the same database state.
	var charges []ledger.Charge
	credits := make(map[uuid.UUID]decimal.Decimal)

	err := s.inTransaction(ctx, func(txCtx context.Context) error {
		var err error
		charges, err = s.chargeRepo.FindOpenWithDueDates(txCtx, tenantID)
		if err != nil {
			return err
		}
		if !s.policy.RespectCreditCoverage {
			return nil
		}
		for i := range charges {
			if _, err := s.contractCredit(txCtx, tenantID, charges[i].ContractID, credits); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &RunResult{Timestamp: time.Now()}

	for i := range charges {
		charge := &charges[i]
		result.Processed++

		emitted, err := s.processCharge(ctx, tenantID, charge, today, credits)
		if err != nil {
			result.Failed++
			log.Error("reminder emission failed",
				zap.String("charge_id", charge.ID.String()),
				zap.String("charge_number", charge.ChargeNumber),
				zap.Error(err))
			continue
		}
		if emitted {
			result.Emitted++
		} else {
			result.Skipped++
		}
	}

	telemetry.SetAttributes(span,
		"processed", result.Processed,
		"emitted", result.Emitted,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	log.Info("reminder run finished",
		zap.Int("processed", result.Processed),
		zap.Int("emitted", result.Emitted),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	return result, nil
}

func (s *Service) processCharge(
	ctx context.Context,
	tenantID uuid.UUID,
	charge *ledger.Charge,
	today time.Time,
	credits map[uuid.UUID]decimal.Decimal,
) (bool, error) {
	tier, ok := reminder.ClassifyCharge(charge, today, s.policy)
	if !ok {
		return false, nil
	}

	if s.policy.RespectCreditCoverage {
		credit, err := s.contractCredit(ctx, tenantID, charge.ContractID, credits)
		if err != nil {
			return false, err
		}
		if credit.GreaterThanOrEqual(charge.OutstandingAmount) {
			return false, nil
		}
	}

	event, err := reminder.NewReminderEvent(tenantID, charge.ContractID, charge.ID, tier, today)
	if err != nil {
		return false, err
	}

	if err := s.eventRepo.Save(ctx, event); err != nil {
		// The unique dedup index makes same-day re-runs a no-op
		if errors.Is(err, shared.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}

	s.publishEvents(ctx, event)

	return true, nil
}

// inTransaction runs fn in one transaction when a manager is wired,
// directly otherwise.
func (s *Service) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.InTransaction(ctx, fn)
}

func (s *Service) contractCredit(
	ctx context.Context,
	tenantID, contractID uuid.UUID,
	credits map[uuid.UUID]decimal.Decimal,
) (decimal.Decimal, error) {
	if credit, ok := credits[contractID]; ok {
		return credit, nil
	}
	totalCharged, err := s.chargeRepo.SumByContract(ctx, tenantID, contractID)
	if err != nil {
		return decimal.Zero, err
	}
	totalPaid, err := s.paymentRepo.SumByContract(ctx, tenantID, contractID)
	if err != nil {
		return decimal.Zero, err
	}
	credit := s.calculator.CreditAmount(totalCharged.Sub(totalPaid))
	credits[contractID] = credit
	return credit, nil
}

func (s *Service) publishEvents(ctx context.Context, event *reminder.ReminderEvent) {
	if s.publisher == nil {
		return
	}
	for _, e := range event.GetDomainEvents() {
		_ = s.publisher.Publish(ctx, e)
	}
	event.ClearDomainEvents()
}

// EventView represents a reminder event in API responses
type EventView struct {
	ID         uuid.UUID `json:"id"`
	ContractID uuid.UUID `json:"contract_id"`
	ChargeID   uuid.UUID `json:"charge_id"`
	Tier       string    `json:"tier"`
	EventDate  time.Time `json:"event_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListEvents returns emitted reminder events with filtering
func (s *Service) ListEvents(ctx context.Context, tenantID uuid.UUID, filter reminder.EventFilter) ([]EventView, int64, error) {
	events, err := s.eventRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.eventRepo.CountForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}

	views := make([]EventView, len(events))
	for i, e := range events {
		views[i] = EventView{
			ID:         e.ID,
			ContractID: e.ContractID,
			ChargeID:   e.ChargeID,
			Tier:       e.Tier.String(),
			EventDate:  e.EventDate,
			CreatedAt:  e.CreatedAt,
		}
	}
	return views, total, nil
}

// PreviewEntry is one would-be reminder from a dry-run classification
type PreviewEntry struct {
	ChargeID     uuid.UUID       `json:"charge_id"`
	ChargeNumber string          `json:"charge_number"`
	ContractID   uuid.UUID       `json:"contract_id"`
	Tier         string          `json:"tier"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	Suppressed   bool            `json:"suppressed"` // Credit coverage would suppress it
}

// Preview classifies a contract's open charges for the given day without
// persisting anything. Suppressed charges are included and flagged.
func (s *Service) Preview(ctx context.Context, tenantID, contractID uuid.UUID, today time.Time) ([]PreviewEntry, error) {
	entries := make([]PreviewEntry, 0)

	err := s.inTransaction(ctx, func(txCtx context.Context) error {
		charges, err := s.chargeRepo.FindOpenByContract(txCtx, tenantID, contractID)
		if err != nil {
			return err
		}

		credits := make(map[uuid.UUID]decimal.Decimal)

		for i := range charges {
			charge := &charges[i]
			tier, ok := reminder.ClassifyCharge(charge, today, s.policy)
			if !ok {
				continue
			}

			suppressed := false
			if s.policy.RespectCreditCoverage {
				credit, err := s.contractCredit(txCtx, tenantID, charge.ContractID, credits)
				if err != nil {
					return err
				}
				suppressed = credit.GreaterThanOrEqual(charge.OutstandingAmount)
			}

			entries = append(entries, PreviewEntry{
				ChargeID:     charge.ID,
				ChargeNumber: charge.ChargeNumber,
				ContractID:   charge.ContractID,
				Tier:         tier.String(),
				Outstanding:  charge.OutstandingAmount,
				DueDate:      charge.DueDate,
				Suppressed:   suppressed,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
