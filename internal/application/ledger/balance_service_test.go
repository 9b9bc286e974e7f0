package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleetrent/backend/internal/domain/ledger"
)

func TestBalanceServiceGetBalance(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	contractID := uuid.New()

	t.Run("computes balance from ledger sums", func(t *testing.T) {
		chargeRepo := new(MockChargeRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := NewBalanceService(chargeRepo, paymentRepo, nil)

		chargeRepo.On("SumByContract", mock.Anything, tenantID, contractID).Return(decimal.NewFromInt(500), nil)
		paymentRepo.On("SumByContract", mock.Anything, tenantID, contractID).Return(decimal.NewFromInt(300), nil)

		result, err := svc.GetBalance(ctx, tenantID, contractID)
		require.NoError(t, err)

		assert.Equal(t, contractID, result.ContractID)
		assert.True(t, result.Balance.Equal(decimal.NewFromInt(200)))
		assert.Equal(t, "IN_DEBT", result.Category)
		assert.True(t, result.Credit.IsZero())
	})

	t.Run("overpaid contract is in credit", func(t *testing.T) {
		chargeRepo := new(MockChargeRepository)
		paymentRepo := new(MockPaymentRepository)
		svc := NewBalanceService(chargeRepo, paymentRepo, nil)

		chargeRepo.On("SumByContract", mock.Anything, tenantID, contractID).Return(decimal.NewFromInt(100), nil)
		paymentRepo.On("SumByContract", mock.Anything, tenantID, contractID).Return(decimal.NewFromInt(150), nil)

		result, err := svc.GetBalance(ctx, tenantID, contractID)
		require.NoError(t, err)

		assert.Equal(t, "IN_CREDIT", result.Category)
		assert.True(t, result.Credit.Equal(decimal.NewFromInt(50)))
	})

	t.Run("second read is served from cache", func(t *testing.T) {
		chargeRepo := new(MockChargeRepository)
		paymentRepo := new(MockPaymentRepository)
		cache := newMemoryBalanceCache()
		svc := NewBalanceService(chargeRepo, paymentRepo, cache)

		chargeRepo.On("SumByContract", mock.Anything, tenantID, contractID).Return(decimal.NewFromInt(100), nil).Once()
		paymentRepo.On("SumByContract", mock.Anything, tenantID, contractID).Return(decimal.NewFromInt(100), nil).Once()

		first, err := svc.GetBalance(ctx, tenantID, contractID)
		require.NoError(t, err)
		assert.Equal(t, "SETTLED", first.Category)

		second, err := svc.GetBalance(ctx, tenantID, contractID)
		require.NoError(t, err)
		assert.Equal(t, "SETTLED", second.Category)

		chargeRepo.AssertNumberOfCalls(t, "SumByContract", 1)
		paymentRepo.AssertNumberOfCalls(t, "SumByContract", 1)
	})
}

func TestBalanceServiceListBalances(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	contractA := uuid.New()
	contractB := uuid.New()

	chargeRepo := new(MockChargeRepository)
	paymentRepo := new(MockPaymentRepository)
	svc := NewBalanceService(chargeRepo, paymentRepo, nil)

	chargeRepo.On("ListContractIDs", ctx, tenantID).Return([]uuid.UUID{contractA, contractB}, nil)
	chargeRepo.On("SumByContract", mock.Anything, tenantID, contractA).Return(decimal.NewFromInt(100), nil)
	paymentRepo.On("SumByContract", mock.Anything, tenantID, contractA).Return(decimal.NewFromInt(100), nil)
	chargeRepo.On("SumByContract", mock.Anything, tenantID, contractB).Return(decimal.NewFromInt(200), nil)
	paymentRepo.On("SumByContract", mock.Anything, tenantID, contractB).Return(decimal.NewFromInt(50), nil)

	results, err := svc.ListBalances(ctx, tenantID)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "SETTLED", results[0].Category)
	assert.Equal(t, "IN_DEBT", results[1].Category)
	assert.True(t, results[1].Balance.Equal(decimal.NewFromInt(150)))
}

func TestBalanceServiceGetLedger(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	contractID := uuid.New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	chargeRepo := new(MockChargeRepository)
	paymentRepo := new(MockPaymentRepository)
	svc := NewBalanceService(chargeRepo, paymentRepo, nil)

	charge := newOpenCharge(tenantID, contractID, "CHG-20260301-00001", 100, base.AddDate(0, 0, 21))
	payment, err := ledger.NewPayment(tenantID, "PAY-20260310-00001", contractID,
		mustMoneyEUR(60), ledger.PaymentMethodBankTransfer, base.AddDate(0, 0, 9))
	require.NoError(t, err)

	chargeRepo.On("FindByContract", mock.Anything, tenantID, contractID, mock.AnythingOfType("ledger.ChargeFilter")).
		Return([]ledger.Charge{charge}, nil)
	paymentRepo.On("FindByContract", mock.Anything, tenantID, contractID, mock.AnythingOfType("ledger.PaymentFilter")).
		Return([]ledger.Payment{*payment}, nil)
	chargeRepo.On("SumByContract", mock.Anything, tenantID, contractID).Return(decimal.NewFromInt(100), nil)
	paymentRepo.On("SumByContract", mock.Anything, tenantID, contractID).Return(decimal.NewFromInt(60), nil)

	view, err := svc.GetLedger(ctx, tenantID, contractID)
	require.NoError(t, err)

	require.Len(t, view.Entries, 2)
	// Chronological: the charge entered the ledger before the payment arrived
	assert.Equal(t, "charge", view.Entries[0].EntryType)
	assert.True(t, view.Entries[0].SignedAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "payment", view.Entries[1].EntryType)
	assert.True(t, view.Entries[1].SignedAmount.Equal(decimal.NewFromInt(-60)))

	assert.True(t, view.Balance.Balance.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, "IN_DEBT", view.Balance.Category)
}
