package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
)

// Reservation is one row of the reservation ledger. Rows are append-mostly:
// only the coordinator's locked path may update the status column, and only
// along the legal state machine.
type Reservation struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ResourceID uuid.UUID               `gorm:"column:resource_id;type:uuid;not null;index:idx_reservations_resource_window"`
	HolderID   uuid.UUID               `gorm:"column:holder_id;type:uuid;not null;index"`
	Status     enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Mode       enums.ReservationMode   `gorm:"column:mode;type:text;not null;default:'commit'"`

	// StartsAt/EndsAt form a half-open window [StartsAt, EndsAt); both are nil
	// for quantity resources, which have no time axis.
	StartsAt *time.Time `gorm:"column:starts_at;index:idx_reservations_resource_window"`
	EndsAt   *time.Time `gorm:"column:ends_at"`

	// Amount is the occupancy claimed by this reservation (guests for
	// concurrent resources, always 1 for exclusive ones).
	Amount int `gorm:"column:amount;not null;default:1"`
	// Quantity is set instead of Amount for inventory reservations.
	Quantity *decimal.Decimal `gorm:"column:quantity;type:numeric"`

	// ExpiresAt is set for holds; a pending reservation past this instant is
	// treated as expired by every reader.
	ExpiresAt *time.Time `gorm:"column:expires_at"`

	Version     int        `gorm:"column:version;not null;default:1"`
	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	ReleasedAt  *time.Time `gorm:"column:released_at"`
	ExpiredAt   *time.Time `gorm:"column:expired_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// HoldExpired reports whether a pending hold has passed its TTL at now.
func (r *Reservation) HoldExpired(now time.Time) bool {
	return r.Status == enums.ReservationStatusPending &&
		r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// OccupiesAt reports whether this reservation still counts toward committed
// load at now: confirmed rows always do, pending holds only until expiry.
func (r *Reservation) OccupiesAt(now time.Time) bool {
	switch r.Status {
	case enums.ReservationStatusConfirmed:
		return true
	case enums.ReservationStatusPending:
		return !r.HoldExpired(now)
	}
	return false
}
