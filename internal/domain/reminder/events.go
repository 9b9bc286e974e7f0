package reminder

import (
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ReminderEmittedEvent is raised when a reminder is emitted for a charge
type ReminderEmittedEvent struct {
	shared.BaseDomainEvent
	ReminderID uuid.UUID `json:"reminder_id"`
	ContractID uuid.UUID `json:"contract_id"`
	ChargeID   uuid.UUID `json:"charge_id"`
	Tier       Tier      `json:"tier"`
	EventDate  time.Time `json:"event_date"`
}

// EventType returns the event type name
func (e *ReminderEmittedEvent) EventType() string {
	return "ReminderEmitted"
}

// NewReminderEmittedEvent creates a new ReminderEmittedEvent
func NewReminderEmittedEvent(r *ReminderEvent) *ReminderEmittedEvent {
	return &ReminderEmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ReminderEmitted", "ReminderEvent", r.ID, r.TenantID),
		ReminderID:      r.ID,
		ContractID:      r.ContractID,
		ChargeID:        r.ChargeID,
		Tier:            r.Tier,
		EventDate:       r.EventDate,
	}
}
