package reminder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetrent/backend/internal/domain/shared"
)

// ReminderEvent is the record of one reminder emitted for one charge
// on one calendar day. The dedup key carries the at-most-once
// guarantee: a unique index on it turns a same-day re-run into a no-op.
type ReminderEvent struct {
	shared.TenantAggregateRoot
	ContractID uuid.UUID `json:"contract_id"`
	ChargeID   uuid.UUID `json:"charge_id"`
	Tier       Tier      `json:"tier"`
	EventDate  time.Time `json:"event_date"` // Calendar day the reminder was emitted for
	DedupKey   string    `json:"dedup_key"`
}

// BuildDedupKey derives the uniqueness key for a charge/tier/day triple
func BuildDedupKey(chargeID uuid.UUID, tier Tier, eventDate time.Time) string {
	return fmt.Sprintf("%s|%s|%s", chargeID, tier, eventDate.Format("2006-01-02"))
}

// NewReminderEvent creates a reminder event for the given charge and tier
func NewReminderEvent(
	tenantID uuid.UUID,
	contractID uuid.UUID,
	chargeID uuid.UUID,
	tier Tier,
	eventDate time.Time,
) (*ReminderEvent, error) {
	if contractID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTRACT", "Contract ID cannot be empty")
	}
	if chargeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CHARGE", "Charge ID cannot be empty")
	}
	if !tier.IsValid() {
		return nil, shared.NewDomainError("INVALID_TIER", fmt.Sprintf("Tier %q is not a valid reminder tier", tier))
	}
	if eventDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_EVENT_DATE", "Event date is required")
	}

	day := time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(), 0, 0, 0, 0, eventDate.Location())

	e := &ReminderEvent{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ContractID:          contractID,
		ChargeID:            chargeID,
		Tier:                tier,
		EventDate:           day,
		DedupKey:            BuildDedupKey(chargeID, tier, day),
	}

	e.AddDomainEvent(NewReminderEmittedEvent(e))

	return e, nil
}
