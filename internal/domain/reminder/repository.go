package reminder

import (
	"context"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EventFilter defines filtering options for reminder event queries
type EventFilter struct {
	shared.Filter
	ContractID *uuid.UUID // Filter by contract
	ChargeID   *uuid.UUID // Filter by charge
	Tier       *Tier      // Filter by tier
	FromDate   *time.Time // Filter by event date range start
	ToDate     *time.Time // Filter by event date range end
}

// EventRepository defines the interface for reminder event persistence
type EventRepository interface {
	// FindByID finds a reminder event by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ReminderEvent, error)

	// FindAllForTenant finds reminder events for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter EventFilter) ([]ReminderEvent, error)

	// FindByContract finds reminder events for a contract
	FindByContract(ctx context.Context, tenantID, contractID uuid.UUID, filter EventFilter) ([]ReminderEvent, error)

	// Save inserts a reminder event. When the dedup key already exists it
	// returns shared.ErrAlreadyExists and persists nothing.
	Save(ctx context.Context, event *ReminderEvent) error

	// ExistsByDedupKey reports whether an event with the dedup key exists
	ExistsByDedupKey(ctx context.Context, tenantID uuid.UUID, dedupKey string) (bool, error)

	// CountForTenant counts reminder events for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter EventFilter) (int64, error)
}
