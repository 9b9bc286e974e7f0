package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and lifecycle timestamps every domain
// entity shares. IDs are always generated in the domain layer, never by
// the database.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity creates an entity with a fresh random ID and both
// timestamps set to now.
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
