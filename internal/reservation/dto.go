package reservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/innkeeplabs/innkeep-backend/pkg/db/models"
)

// ReservationDTO represents the reservation payload returned to clients.
type ReservationDTO struct {
	ID          uuid.UUID  `json:"id"`
	ResourceID  uuid.UUID  `json:"resource_id"`
	HolderID    uuid.UUID  `json:"holder_id"`
	Status      string     `json:"status"`
	Mode        string     `json:"mode"`
	Window      *Window    `json:"window,omitempty"`
	Amount      int        `json:"amount,omitempty"`
	Quantity    *string    `json:"quantity,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Version     int        `json:"version"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewReservationDTO builds a DTO from the persisted model.
func NewReservationDTO(r *models.Reservation) *ReservationDTO {
	dto := &ReservationDTO{
		ID:          r.ID,
		ResourceID:  r.ResourceID,
		HolderID:    r.HolderID,
		Status:      string(r.Status),
		Mode:        string(r.Mode),
		Amount:      r.Amount,
		ExpiresAt:   r.ExpiresAt,
		Version:     r.Version,
		ConfirmedAt: r.ConfirmedAt,
		CancelledAt: r.CancelledAt,
		ReleasedAt:  r.ReleasedAt,
		ExpiredAt:   r.ExpiredAt,
		CreatedAt:   r.CreatedAt,
	}
	if r.StartsAt != nil && r.EndsAt != nil {
		dto.Window = &Window{Start: *r.StartsAt, End: *r.EndsAt}
	}
	if r.Quantity != nil {
		q := r.Quantity.String()
		dto.Quantity = &q
	}
	return dto
}
