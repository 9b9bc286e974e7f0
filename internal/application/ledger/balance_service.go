package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/fleetrent/backend/internal/infrastructure/logger"
	"github.com/fleetrent/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// BalanceCache caches computed contract balances. Implementations must
// treat a miss and an unavailable backend the same way: return found
// false so the caller falls back to a direct read.
type BalanceCache interface {
	GetBalance(ctx context.Context, tenantID, contractID uuid.UUID) (*ledger.Balance, bool, error)
	SetBalance(ctx context.Context, tenantID, contractID uuid.UUID, balance *ledger.Balance) error
	InvalidateBalance(ctx context.Context, tenantID, contractID uuid.UUID) error
}

// BalanceService computes contract balances from the ledger
type BalanceService struct {
	chargeRepo  ledger.ChargeRepository
	paymentRepo ledger.PaymentRepository
	calculator  *ledger.BalanceCalculator
	cache       BalanceCache
}

// NewBalanceService creates a new BalanceService. The cache may be nil,
// in which case every read goes to the database.
func NewBalanceService(
	chargeRepo ledger.ChargeRepository,
	paymentRepo ledger.PaymentRepository,
	cache BalanceCache,
) *BalanceService {
	return &BalanceService{
		chargeRepo:  chargeRepo,
		paymentRepo: paymentRepo,
		calculator:  ledger.NewBalanceCalculator(),
		cache:       cache,
	}
}

// BalanceResult represents a contract balance in API responses
type BalanceResult struct {
	ContractID   uuid.UUID       `json:"contract_id"`
	TotalCharged decimal.Decimal `json:"total_charged"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Balance      decimal.Decimal `json:"balance"`
	Category     string          `json:"category"`
	Credit       decimal.Decimal `json:"credit"`
	AsOf         time.Time       `json:"as_of"`
}

func toBalanceResult(b *ledger.Balance) *BalanceResult {
	contractID, _ := uuid.Parse(b.ContractID)
	return &BalanceResult{
		ContractID:   contractID,
		TotalCharged: b.TotalCharged,
		TotalPaid:    b.TotalPaid,
		Balance:      b.Balance,
		Category:     b.Category.String(),
		Credit:       b.Credit(),
		AsOf:         b.AsOf,
	}
}

// GetBalance returns the current balance of a contract. Reads go through
// the cache; the first read after a ledger write recomputes from sums.
func (s *BalanceService) GetBalance(ctx context.Context, tenantID, contractID uuid.UUID) (*BalanceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "get_balance")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrContractID, contractID.String())

	if s.cache != nil {
		cached, found, err := s.cache.GetBalance(ctx, tenantID, contractID)
		if err != nil {
			logger.L(ctx).Warn("balance cache read failed", zap.Error(err), zap.String("contract_id", contractID.String()))
		} else if found {
			telemetry.SetAttribute(span, "cache_hit", true)
			return toBalanceResult(cached), nil
		}
	}

	balance, err := s.computeBalance(ctx, tenantID, contractID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetBalance(ctx, tenantID, contractID, balance); err != nil {
			logger.L(ctx).Warn("balance cache write failed", zap.Error(err), zap.String("contract_id", contractID.String()))
		}
	}

	return toBalanceResult(balance), nil
}

// ListBalances returns the balance of every contract with ledger activity
func (s *BalanceService) ListBalances(ctx context.Context, tenantID uuid.UUID) ([]BalanceResult, error) {
	contractIDs, err := s.chargeRepo.ListContractIDs(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	results := make([]BalanceResult, 0, len(contractIDs))
	for _, contractID := range contractIDs {
		balance, err := s.computeBalance(ctx, tenantID, contractID)
		if err != nil {
			return nil, err
		}
		results = append(results, *toBalanceResult(balance))
	}
	return results, nil
}

func (s *BalanceService) computeBalance(ctx context.Context, tenantID, contractID uuid.UUID) (*ledger.Balance, error) {
	totalCharged, err := s.chargeRepo.SumByContract(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	totalPaid, err := s.paymentRepo.SumByContract(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	balance := s.calculator.Calculate(contractID.String(), totalCharged, totalPaid, time.Now())
	return &balance, nil
}

// LedgerEntryView is one row of the merged contract ledger: charges
// carry positive signed amounts, payments negative.
type LedgerEntryView struct {
	EntryType    string          `json:"entry_type"` // "charge" or "payment"
	ID           uuid.UUID       `json:"id"`
	Number       string          `json:"number"`
	Description  string          `json:"description,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	SignedAmount decimal.Decimal `json:"signed_amount"`
	Status       string          `json:"status"`
	Date         time.Time       `json:"date"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
}

// LedgerView is the merged signed entry view of one contract
type LedgerView struct {
	ContractID uuid.UUID         `json:"contract_id"`
	Entries    []LedgerEntryView `json:"entries"`
	Balance    BalanceResult     `json:"balance"`
}

// GetLedger returns all charges and payments of a contract merged into
// one chronological view, plus the resulting balance.
func (s *BalanceService) GetLedger(ctx context.Context, tenantID, contractID uuid.UUID) (*LedgerView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "get_ledger")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrContractID, contractID.String())

	chargeFilter := ledger.ChargeFilter{}
	chargeFilter.PageSize = -1 // Unpaginated, the view is per contract
	charges, err := s.chargeRepo.FindByContract(ctx, tenantID, contractID, chargeFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	paymentFilter := ledger.PaymentFilter{}
	paymentFilter.PageSize = -1
	payments, err := s.paymentRepo.FindByContract(ctx, tenantID, contractID, paymentFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	entries := make([]LedgerEntryView, 0, len(charges)+len(payments))
	for i := range charges {
		c := &charges[i]
		signed := c.Amount
		if c.IsCancelled() {
			signed = decimal.Zero
		}
		entries = append(entries, LedgerEntryView{
			EntryType:    "charge",
			ID:           c.ID,
			Number:       c.ChargeNumber,
			Description:  c.Description,
			Amount:       c.Amount,
			SignedAmount: signed,
			Status:       c.Status.String(),
			Date:         c.EntryDate,
			DueDate:      c.DueDate,
		})
	}
	for i := range payments {
		p := &payments[i]
		entries = append(entries, LedgerEntryView{
			EntryType:    "payment",
			ID:           p.ID,
			Number:       p.PaymentNumber,
			Description:  p.Reference,
			Amount:       p.Amount,
			SignedAmount: p.Amount.Neg(),
			Status:       p.Status.String(),
			Date:         p.ReceivedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].Number < entries[j].Number
	})

	balance, err := s.computeBalance(ctx, tenantID, contractID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &LedgerView{
		ContractID: contractID,
		Entries:    entries,
		Balance:    *toBalanceResult(balance),
	}, nil
}
