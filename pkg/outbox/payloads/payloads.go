package payloads

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStateChangedEvent is the fire-and-forget notification payload for
// every reservation state transition. Consumers treat it as informational; the
// ledger row is the source of truth.
type ReservationStateChangedEvent struct {
	ReservationID uuid.UUID  `json:"reservationId"`
	ResourceID    uuid.UUID  `json:"resourceId"`
	HolderID      uuid.UUID  `json:"holderId"`
	Status        string     `json:"status"`
	StartsAt      *time.Time `json:"startsAt,omitempty"`
	EndsAt        *time.Time `json:"endsAt,omitempty"`
	Amount        int        `json:"amount,omitempty"`
	Quantity      string     `json:"quantity,omitempty"`
	OccurredAt    time.Time  `json:"occurredAt"`
}

// ResourceRetiredEvent announces a resource leaving the bookable pool.
type ResourceRetiredEvent struct {
	ResourceID uuid.UUID `json:"resourceId"`
	PropertyID uuid.UUID `json:"propertyId"`
	RetiredAt  time.Time `json:"retiredAt"`
}

// StockAdjustedEvent reports a manual stock adjustment or waste entry.
type StockAdjustedEvent struct {
	ResourceID   uuid.UUID `json:"resourceId"`
	MovementType string    `json:"movementType"`
	Quantity     string    `json:"quantity"`
	OccurredAt   time.Time `json:"occurredAt"`
}
