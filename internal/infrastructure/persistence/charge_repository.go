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

// openChargeOrder is the allocation order: earliest due date first, null
// due dates last, then entry date, then id as a stable tie-break.
const openChargeOrder = "due_date ASC NULLS LAST, entry_date ASC, id ASC"

// GormChargeRepository implements ChargeRepository using GORM
type GormChargeRepository struct {
	db *Database
}

// NewGormChargeRepository creates a new GormChargeRepository
func NewGormChargeRepository(db *Database) *GormChargeRepository {
	return &GormChargeRepository{db: db}
}

// conn resolves the connection, joining an open transaction when the
// context carries one
func (r *GormChargeRepository) conn(ctx context.Context) *gorm.DB {
	return r.db.Conn(ctx).WithContext(ctx)
}

// FindByID finds a charge by ID
func (r *GormChargeRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Charge, error) {
	var model models.ChargeModel
	if err := r.conn(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a charge by ID for a specific tenant
func (r *GormChargeRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Charge, error) {
	var model models.ChargeModel
	if err := r.conn(ctx).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByChargeNumber finds by charge number for a tenant
func (r *GormChargeRepository) FindByChargeNumber(ctx context.Context, tenantID uuid.UUID, chargeNumber string) (*ledger.Charge, error) {
	var model models.ChargeModel
	if err := r.conn(ctx).
		First(&model, "charge_number = ? AND tenant_id = ?", chargeNumber, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all charges for a tenant with filtering
func (r *GormChargeRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.ChargeFilter) ([]ledger.Charge, error) {
	var chargeModels []models.ChargeModel
	query := r.applyFilter(r.conn(ctx).Where("tenant_id = ?", tenantID), filter)

	// Apply pagination
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize).Offset(filter.Offset())
	}

	order := buildOrderClause(filter.OrderBy, filter.OrderDir, ChargeSortFields, "entry_date")
	if err := query.Order(order).Find(&chargeModels).Error; err != nil {
		return nil, err
	}
	return toDomainCharges(chargeModels), nil
}

// FindByContract finds charges for a contract
func (r *GormChargeRepository) FindByContract(ctx context.Context, tenantID, contractID uuid.UUID, filter ledger.ChargeFilter) ([]ledger.Charge, error) {
	filter.ContractID = &contractID
	return r.FindAllForTenant(ctx, tenantID, filter)
}

// FindOpenByContract finds all open charges for a contract in allocation order
func (r *GormChargeRepository) FindOpenByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]ledger.Charge, error) {
	var chargeModels []models.ChargeModel
	if err := r.conn(ctx).
		Where("tenant_id = ? AND contract_id = ? AND status IN ?", tenantID, contractID,
			[]ledger.ChargeStatus{ledger.ChargeStatusUnpaid, ledger.ChargeStatusPartial}).
		Order(openChargeOrder).
		Find(&chargeModels).Error; err != nil {
		return nil, err
	}
	return toDomainCharges(chargeModels), nil
}

// FindOpenWithDueDates finds all open charges carrying a due date across a tenant
func (r *GormChargeRepository) FindOpenWithDueDates(ctx context.Context, tenantID uuid.UUID) ([]ledger.Charge, error) {
	var chargeModels []models.ChargeModel
	if err := r.conn(ctx).
		Where("tenant_id = ? AND due_date IS NOT NULL AND status IN ?", tenantID,
			[]ledger.ChargeStatus{ledger.ChargeStatusUnpaid, ledger.ChargeStatusPartial}).
		Order("due_date ASC, id ASC").
		Find(&chargeModels).Error; err != nil {
		return nil, err
	}
	return toDomainCharges(chargeModels), nil
}

// Save creates or updates a charge
func (r *GormChargeRepository) Save(ctx context.Context, charge *ledger.Charge) error {
	model := models.ChargeModelFromDomain(charge)
	return r.conn(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormChargeRepository) SaveWithLock(ctx context.Context, charge *ledger.Charge) error {
	var currentVersion int
	if err := r.conn(ctx).
		Model(&models.ChargeModel{}).
		Where("id = ?", charge.ID).
		Select("version").
		Scan(&currentVersion).Error; err != nil {
		return err
	}

	if currentVersion != charge.Version {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The charge has been modified by another user")
	}

	charge.Version++

	model := models.ChargeModelFromDomain(charge)
	result := r.conn(ctx).
		Model(model).
		Where("id = ? AND version = ?", charge.ID, currentVersion).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The charge has been modified by another user")
	}
	return nil
}

// CountForTenant counts charges for a tenant with optional filters
func (r *GormChargeRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.ChargeFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.conn(ctx).Model(&models.ChargeModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumByContract calculates the total non-cancelled charge amount for a contract
func (r *GormChargeRepository) SumByContract(ctx context.Context, tenantID, contractID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.conn(ctx).
		Model(&models.ChargeModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("tenant_id = ? AND contract_id = ? AND status <> ?", tenantID, contractID, ledger.ChargeStatusCancelled).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// SumOutstandingByContract calculates the total outstanding amount for a contract
func (r *GormChargeRepository) SumOutstandingByContract(ctx context.Context, tenantID, contractID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.conn(ctx).
		Model(&models.ChargeModel{}).
		Select("COALESCE(SUM(outstanding_amount), 0)").
		Where("tenant_id = ? AND contract_id = ? AND status IN ?", tenantID, contractID,
			[]ledger.ChargeStatus{ledger.ChargeStatusUnpaid, ledger.ChargeStatusPartial}).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// ExistsByChargeNumber checks if a charge number exists for a tenant
func (r *GormChargeRepository) ExistsByChargeNumber(ctx context.Context, tenantID uuid.UUID, chargeNumber string) (bool, error) {
	var count int64
	if err := r.conn(ctx).
		Model(&models.ChargeModel{}).
		Where("tenant_id = ? AND charge_number = ?", tenantID, chargeNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListContractIDs lists the distinct contracts carrying charges for a tenant
func (r *GormChargeRepository) ListContractIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.conn(ctx).
		Model(&models.ChargeModel{}).
		Distinct("contract_id").
		Where("tenant_id = ?", tenantID).
		Order("contract_id ASC").
		Pluck("contract_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListTenantIDs lists the distinct tenants carrying charges. The daily
// reminder scheduler iterates this set.
func (r *GormChargeRepository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.conn(ctx).
		Model(&models.ChargeModel{}).
		Distinct("tenant_id").
		Order("tenant_id ASC").
		Pluck("tenant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// GenerateChargeNumber generates a unique charge number for a tenant.
// Format: CHG-YYYYMMDD-NNNNN with a per-tenant daily sequence.
func (r *GormChargeRepository) GenerateChargeNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("CHG-%s-", time.Now().Format("20060102"))

	var maxNumber string
	if err := r.conn(ctx).
		Model(&models.ChargeModel{}).
		Select("charge_number").
		Where("tenant_id = ? AND charge_number LIKE ?", tenantID, prefix+"%").
		Order("charge_number DESC").
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

// applyFilter translates a ChargeFilter into query conditions
func (r *GormChargeRepository) applyFilter(query *gorm.DB, filter ledger.ChargeFilter) *gorm.DB {
	if filter.ContractID != nil {
		query = query.Where("contract_id = ?", *filter.ContractID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.FromDate != nil {
		query = query.Where("entry_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("entry_date <= ?", *filter.ToDate)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Overdue != nil && *filter.Overdue {
		query = query.Where("due_date < ? AND status IN ?", time.Now(),
			[]ledger.ChargeStatus{ledger.ChargeStatusUnpaid, ledger.ChargeStatusPartial})
	}
	if filter.MinAmount != nil {
		query = query.Where("outstanding_amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("outstanding_amount <= ?", *filter.MaxAmount)
	}
	return query
}

func toDomainCharges(chargeModels []models.ChargeModel) []ledger.Charge {
	charges := make([]ledger.Charge, len(chargeModels))
	for i, model := range chargeModels {
		charges[i] = *model.ToDomain()
	}
	return charges
}

// Ensure GormChargeRepository implements the interface
var _ ledger.ChargeRepository = (*GormChargeRepository)(nil)
