package models

import (
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel carries the identity and timestamp columns shared by every table.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// AggregateModel adds the optimistic-locking version column.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// TenantAggregateModel scopes an aggregate row to a tenant. All ledger
// tables embed this; cross-tenant reads are a repository bug.
type TenantAggregateModel struct {
	AggregateModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// DomainRoot reassembles the embedded aggregate identity for a domain entity.
func (m *TenantAggregateModel) DomainRoot() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		TenantID: m.TenantID,
	}
}

// FromDomainTenantAggregateRoot copies identity, version and tenant from the
// domain root into the row.
func (m *TenantAggregateModel) FromDomainTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.ID = t.ID
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
	m.Version = t.Version
	m.TenantID = t.TenantID
}
