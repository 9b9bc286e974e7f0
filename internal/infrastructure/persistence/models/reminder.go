package models

import (
	"time"

	"github.com/fleetrent/backend/internal/domain/reminder"
	"github.com/google/uuid"
)

// ReminderEventModel is the persistence model for the ReminderEvent
// aggregate root. The unique dedup key index is what makes reminder
// emission at-most-once per charge, tier and day.
type ReminderEventModel struct {
	TenantAggregateModel
	ContractID uuid.UUID     `gorm:"type:uuid;not null;index"`
	ChargeID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	Tier       reminder.Tier `gorm:"type:varchar(20);not null;index"`
	EventDate  time.Time     `gorm:"type:date;not null;index"`
	DedupKey   string        `gorm:"type:varchar(120);not null;uniqueIndex:idx_reminder_tenant_dedup,priority:2"`
}

// TableName returns the table name for GORM
func (ReminderEventModel) TableName() string {
	return "reminder_events"
}

// ToDomain converts the persistence model to a domain ReminderEvent entity.
func (m *ReminderEventModel) ToDomain() *reminder.ReminderEvent {
	return &reminder.ReminderEvent{
		TenantAggregateRoot: m.DomainRoot(),
		ContractID:          m.ContractID,
		ChargeID:            m.ChargeID,
		Tier:                m.Tier,
		EventDate:           m.EventDate,
		DedupKey:            m.DedupKey,
	}
}

// FromDomain populates the persistence model from a domain ReminderEvent entity.
func (m *ReminderEventModel) FromDomain(r *reminder.ReminderEvent) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.ContractID = r.ContractID
	m.ChargeID = r.ChargeID
	m.Tier = r.Tier
	m.EventDate = r.EventDate
	m.DedupKey = r.DedupKey
}

// ReminderEventModelFromDomain creates a new persistence model from a domain ReminderEvent.
func ReminderEventModelFromDomain(r *reminder.ReminderEvent) *ReminderEventModel {
	m := &ReminderEventModel{}
	m.FromDomain(r)
	return m
}
