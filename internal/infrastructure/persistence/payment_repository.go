package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *Database
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *Database) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) conn(ctx context.Context) *gorm.DB {
	return r.db.Conn(ctx).WithContext(ctx)
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.conn(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a payment by ID for a specific tenant
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.conn(ctx).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPaymentNumber finds by payment number for a tenant
func (r *GormPaymentRepository) FindByPaymentNumber(ctx context.Context, tenantID uuid.UUID, paymentNumber string) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.conn(ctx).
		First(&model, "payment_number = ? AND tenant_id = ?", paymentNumber, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all payments for a tenant with filtering
func (r *GormPaymentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.PaymentFilter) ([]ledger.Payment, error) {
	var paymentModels []models.PaymentModel
	query := r.applyFilter(r.conn(ctx).Where("tenant_id = ?", tenantID), filter)

	// Apply pagination
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize).Offset(filter.Offset())
	}

	order := buildOrderClause(filter.OrderBy, filter.OrderDir, PaymentSortFields, "received_at")
	if err := query.Order(order).Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return toDomainPayments(paymentModels), nil
}

// FindByContract finds payments for a contract
func (r *GormPaymentRepository) FindByContract(ctx context.Context, tenantID, contractID uuid.UUID, filter ledger.PaymentFilter) ([]ledger.Payment, error) {
	filter.ContractID = &contractID
	return r.FindAllForTenant(ctx, tenantID, filter)
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *ledger.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return r.conn(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *ledger.Payment) error {
	var currentVersion int
	if err := r.conn(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ?", payment.ID).
		Select("version").
		Scan(&currentVersion).Error; err != nil {
		return err
	}

	if currentVersion != payment.Version {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The payment has been modified by another user")
	}

	payment.Version++

	model := models.PaymentModelFromDomain(payment)
	result := r.conn(ctx).
		Model(model).
		Where("id = ? AND version = ?", payment.ID, currentVersion).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The payment has been modified by another user")
	}
	return nil
}

// CountForTenant counts payments for a tenant with optional filters
func (r *GormPaymentRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.PaymentFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.conn(ctx).Model(&models.PaymentModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumByContract calculates the total payment amount for a contract
func (r *GormPaymentRepository) SumByContract(ctx context.Context, tenantID, contractID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.conn(ctx).
		Model(&models.PaymentModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("tenant_id = ? AND contract_id = ?", tenantID, contractID).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// ExistsByID checks if a payment exists, used for idempotent processing
func (r *GormPaymentRepository) ExistsByID(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.conn(ctx).
		Model(&models.PaymentModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GeneratePaymentNumber generates a unique payment number for a tenant.
// Format: PAY-YYYYMMDD-NNNNN with a per-tenant daily sequence.
func (r *GormPaymentRepository) GeneratePaymentNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("PAY-%s-", time.Now().Format("20060102"))

	var maxNumber string
	if err := r.conn(ctx).
		Model(&models.PaymentModel{}).
		Select("payment_number").
		Where("tenant_id = ? AND payment_number LIKE ?", tenantID, prefix+"%").
		Order("payment_number DESC").
		Limit(1).
		Scan(&maxNumber).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextSeq := 1
	if maxNumber != "" {
		var seq int
		if _, err := fmt.Sscanf(maxNumber[len(prefix):], "%05d", &seq); err == nil {
			nextSeq = seq + 1
		}
	}

	return fmt.Sprintf("%s%05d", prefix, nextSeq), nil
}

// applyFilter translates a PaymentFilter into query conditions
func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter ledger.PaymentFilter) *gorm.DB {
	if filter.ContractID != nil {
		query = query.Where("contract_id = ?", *filter.ContractID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.FromDate != nil {
		query = query.Where("received_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("received_at <= ?", *filter.ToDate)
	}
	return query
}

func toDomainPayments(paymentModels []models.PaymentModel) []ledger.Payment {
	payments := make([]ledger.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments
}

// Ensure GormPaymentRepository implements the interface
var _ ledger.PaymentRepository = (*GormPaymentRepository)(nil)
