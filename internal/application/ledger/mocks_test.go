package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// MockChargeRepository is a mock implementation of ledger.ChargeRepository
type MockChargeRepository struct {
	mock.Mock
}

func (m *MockChargeRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Charge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Charge, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindByChargeNumber(ctx context.Context, tenantID uuid.UUID, chargeNumber string) (*ledger.Charge, error) {
	args := m.Called(ctx, tenantID, chargeNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.ChargeFilter) ([]ledger.Charge, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindByContract(ctx context.Context, tenantID, contractID uuid.UUID, filter ledger.ChargeFilter) ([]ledger.Charge, error) {
	args := m.Called(ctx, tenantID, contractID, filter)
	return args.Get(0).([]ledger.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindOpenByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]ledger.Charge, error) {
	args := m.Called(ctx, tenantID, contractID)
	return args.Get(0).([]ledger.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindOpenWithDueDates(ctx context.Context, tenantID uuid.UUID) ([]ledger.Charge, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]ledger.Charge), args.Error(1)
}

func (m *MockChargeRepository) Save(ctx context.Context, charge *ledger.Charge) error {
	args := m.Called(ctx, charge)
	return args.Error(0)
}

func (m *MockChargeRepository) SaveWithLock(ctx context.Context, charge *ledger.Charge) error {
	args := m.Called(ctx, charge)
	return args.Error(0)
}

func (m *MockChargeRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.ChargeFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChargeRepository) SumByContract(ctx context.Context, tenantID, contractID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, contractID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockChargeRepository) SumOutstandingByContract(ctx context.Context, tenantID, contractID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, contractID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockChargeRepository) ExistsByChargeNumber(ctx context.Context, tenantID uuid.UUID, chargeNumber string) (bool, error) {
	args := m.Called(ctx, tenantID, chargeNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockChargeRepository) ListContractIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockChargeRepository) GenerateChargeNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// MockPaymentRepository is a mock implementation of ledger.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Payment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByPaymentNumber(ctx context.Context, tenantID uuid.UUID, paymentNumber string) (*ledger.Payment, error) {
	args := m.Called(ctx, tenantID, paymentNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.PaymentFilter) ([]ledger.Payment, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByContract(ctx context.Context, tenantID, contractID uuid.UUID, filter ledger.PaymentFilter) ([]ledger.Payment, error) {
	args := m.Called(ctx, tenantID, contractID, filter)
	return args.Get(0).([]ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *ledger.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) SaveWithLock(ctx context.Context, payment *ledger.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.PaymentFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) SumByContract(ctx context.Context, tenantID, contractID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, contractID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) ExistsByID(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) GeneratePaymentNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// passthroughTx runs the function directly, standing in for a real transaction
type passthroughTx struct{}

func (passthroughTx) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memoryBalanceCache is an in-memory BalanceCache for tests
type memoryBalanceCache struct {
	balances    map[string]*ledger.Balance
	invalidated []uuid.UUID
}

func newMemoryBalanceCache() *memoryBalanceCache {
	return &memoryBalanceCache{balances: make(map[string]*ledger.Balance)}
}

func cacheKey(tenantID, contractID uuid.UUID) string {
	return tenantID.String() + ":" + contractID.String()
}

func (c *memoryBalanceCache) GetBalance(ctx context.Context, tenantID, contractID uuid.UUID) (*ledger.Balance, bool, error) {
	b, ok := c.balances[cacheKey(tenantID, contractID)]
	return b, ok, nil
}

func (c *memoryBalanceCache) SetBalance(ctx context.Context, tenantID, contractID uuid.UUID, balance *ledger.Balance) error {
	c.balances[cacheKey(tenantID, contractID)] = balance
	return nil
}

func (c *memoryBalanceCache) InvalidateBalance(ctx context.Context, tenantID, contractID uuid.UUID) error {
	delete(c.balances, cacheKey(tenantID, contractID))
	c.invalidated = append(c.invalidated, contractID)
	return nil
}

// capturingPublisher collects every domain event published after commit
type capturingPublisher struct {
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

// newOpenCharge builds an open charge for a contract, due on the given day
func newOpenCharge(tenantID, contractID uuid.UUID, number string, amount int64, dueDate time.Time) ledger.Charge {
	c, err := ledger.NewCharge(tenantID, number, contractID, ledger.ChargeCategoryRentalRate, "",
		valueobject.NewMoneyEUR(decimal.NewFromInt(amount)), &dueDate, dueDate.AddDate(0, 0, -14))
	if err != nil {
		panic(err)
	}
	c.ClearDomainEvents()
	return *c
}

func mustMoneyEUR(amount int64) valueobject.Money {
	return valueobject.NewMoneyEUR(decimal.NewFromInt(amount))
}
