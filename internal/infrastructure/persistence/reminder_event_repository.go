package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fleetrent/backend/internal/domain/reminder"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReminderEventRepository implements reminder.EventRepository using GORM
type GormReminderEventRepository struct {
	db *Database
}

// NewGormReminderEventRepository creates a new GormReminderEventRepository
func NewGormReminderEventRepository(db *Database) *GormReminderEventRepository {
	return &GormReminderEventRepository{db: db}
}

func (r *GormReminderEventRepository) conn(ctx context.Context) *gorm.DB {
	return r.db.Conn(ctx).WithContext(ctx)
}

// FindByID finds a reminder event by ID
func (r *GormReminderEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*reminder.ReminderEvent, error) {
	var model models.ReminderEventModel
	if err := r.conn(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds reminder events for a tenant with filtering
func (r *GormReminderEventRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter reminder.EventFilter) ([]reminder.ReminderEvent, error) {
	var eventModels []models.ReminderEventModel
	query := r.applyFilter(r.conn(ctx).Where("tenant_id = ?", tenantID), filter)

	// Apply pagination
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize).Offset(filter.Offset())
	}

	order := buildOrderClause(filter.OrderBy, filter.OrderDir, ReminderEventSortFields, "event_date")
	if err := query.Order(order).Find(&eventModels).Error; err != nil {
		return nil, err
	}

	events := make([]reminder.ReminderEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = *model.ToDomain()
	}
	return events, nil
}

// FindByContract finds reminder events for a contract
func (r *GormReminderEventRepository) FindByContract(ctx context.Context, tenantID, contractID uuid.UUID, filter reminder.EventFilter) ([]reminder.ReminderEvent, error) {
	filter.ContractID = &contractID
	return r.FindAllForTenant(ctx, tenantID, filter)
}

// Save inserts a reminder event. A duplicate dedup key hits the unique
// index and surfaces as shared.ErrAlreadyExists, which makes same-day
// re-runs of the reminder pass a no-op.
func (r *GormReminderEventRepository) Save(ctx context.Context, event *reminder.ReminderEvent) error {
	model := models.ReminderEventModelFromDomain(event)
	if err := r.conn(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// ExistsByDedupKey checks whether a reminder with the given dedup key was emitted
func (r *GormReminderEventRepository) ExistsByDedupKey(ctx context.Context, tenantID uuid.UUID, dedupKey string) (bool, error) {
	var count int64
	if err := r.conn(ctx).
		Model(&models.ReminderEventModel{}).
		Where("tenant_id = ? AND dedup_key = ?", tenantID, dedupKey).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountForTenant counts reminder events for a tenant with optional filters
func (r *GormReminderEventRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter reminder.EventFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.conn(ctx).Model(&models.ReminderEventModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter translates an EventFilter into query conditions
func (r *GormReminderEventRepository) applyFilter(query *gorm.DB, filter reminder.EventFilter) *gorm.DB {
	if filter.ContractID != nil {
		query = query.Where("contract_id = ?", *filter.ContractID)
	}
	if filter.ChargeID != nil {
		query = query.Where("charge_id = ?", *filter.ChargeID)
	}
	if filter.Tier != nil {
		query = query.Where("tier = ?", *filter.Tier)
	}
	if filter.FromDate != nil {
		query = query.Where("event_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("event_date <= ?", *filter.ToDate)
	}
	return query
}

// isUniqueViolation detects a Postgres unique constraint violation
// (SQLSTATE 23505) without depending on the driver's error type
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// Ensure GormReminderEventRepository implements the interface
var _ reminder.EventRepository = (*GormReminderEventRepository)(nil)
