package shared

import (
	"github.com/google/uuid"
)

// BaseAggregateRoot adds optimistic locking and domain-event collection to
// an entity. State transitions bump Version; repositories compare it on
// save so two concurrent allocations against the same charge cannot both
// win.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

// IncrementVersion bumps the optimistic-locking version. Called by the
// aggregate itself at the end of each mutating transition.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// GetVersion returns the current optimistic-locking version.
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// AddDomainEvent queues an event for publication after the aggregate is
// persisted.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the queued events in the order they were raised.
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops the queue. Application services call this once
// the events have been handed to the bus.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates an aggregate root at version 1 with no
// pending events.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// TenantAggregateRoot scopes an aggregate to a tenant. Every ledger
// aggregate is tenant-scoped; repositories must filter by TenantID on
// every query.
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// NewTenantAggregateRoot creates a tenant-scoped aggregate root.
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		TenantID:          tenantID,
	}
}
