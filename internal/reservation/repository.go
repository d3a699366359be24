package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/innkeeplabs/innkeep-backend/pkg/db/models"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
)

// Repository wires together reservation and slot persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateReservation inserts a new ledger row.
func (r *Repository) CreateReservation(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error) {
	if err := r.db.WithContext(ctx).Create(reservation).Error; err != nil {
		return nil, err
	}
	return reservation, nil
}

// FindByID loads the reservation.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).First(&reservation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// FindByIDForUpdate loads the reservation with a row lock where the dialect supports one.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	tx := r.db.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := tx.First(&reservation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Save persists the full reservation row.
func (r *Repository) Save(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error) {
	if err := r.db.WithContext(ctx).Save(reservation).Error; err != nil {
		return nil, err
	}
	return reservation, nil
}

// FindResource reloads the resource row, with a row lock where the dialect
// supports one. The locked paths read capacity through this, never from a
// copy loaded before the lock.
func (r *Repository) FindResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	var resource models.Resource
	tx := r.db.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := tx.First(&resource, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

// ListActiveTimed returns every confirmed reservation and pending hold that
// claims a window on the resource, lapsed holds included so the caller can
// transition them.
func (r *Repository) ListActiveTimed(ctx context.Context, resourceID uuid.UUID) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Where("status IN ?", []enums.ReservationStatus{
			enums.ReservationStatusConfirmed,
			enums.ReservationStatusPending,
		}).
		Where("starts_at IS NOT NULL").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListActiveOverlapping returns confirmed reservations plus pending holds for
// the resource whose window intersects [start, end). Expired-by-now holds are
// included so the locked path can transition them before counting load.
func (r *Repository) ListActiveOverlapping(ctx context.Context, resourceID uuid.UUID, start, end time.Time) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Where("status IN ?", []enums.ReservationStatus{
			enums.ReservationStatusConfirmed,
			enums.ReservationStatusPending,
		}).
		Where("starts_at < ? AND ends_at > ?", end, start).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListExpiredPending returns pending holds whose TTL lapsed before now.
func (r *Repository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	var rows []models.Reservation
	q := r.db.WithContext(ctx).
		Where("status = ?", enums.ReservationStatusPending).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// ListSlotResourceIDs returns every resource that has materialized slots.
func (r *Repository) ListSlotResourceIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Distinct("resource_id").
		Pluck("resource_id", &ids).Error
	return ids, err
}

// ListSlotsByResource returns all slot rows for a resource ordered by bucket.
func (r *Repository) ListSlotsByResource(ctx context.Context, resourceID uuid.UUID) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("bucket_start ASC").
		Find(&slots).Error
	return slots, err
}

// SaveSlot persists a slot row.
func (r *Repository) SaveSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	return r.db.WithContext(ctx).Save(slot).Error
}

// FindSlot loads the slot row for one (resource, bucket) pair, nil when absent.
func (r *Repository) FindSlot(ctx context.Context, resourceID uuid.UUID, bucketStart time.Time) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := r.db.WithContext(ctx).
		First(&slot, "resource_id = ? AND bucket_start = ?", resourceID, bucketStart).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

// ApplySlotDelta adjusts a bucket's committed amount, creating the row on
// first touch. The caller holds the per-resource lock; committed never goes
// below zero.
func (r *Repository) ApplySlotDelta(ctx context.Context, resourceID uuid.UUID, bucket Window, capacity, delta int) error {
	slot, err := r.FindSlot(ctx, resourceID, bucket.Start)
	if err != nil {
		return err
	}
	if slot == nil {
		slot = &models.AvailabilitySlot{
			ResourceID:  resourceID,
			BucketStart: bucket.Start,
			BucketEnd:   bucket.End,
			Capacity:    capacity,
		}
	}
	slot.Capacity = capacity
	slot.CommittedAmount += delta
	if slot.CommittedAmount < 0 {
		slot.CommittedAmount = 0
	}
	return r.db.WithContext(ctx).Save(slot).Error
}
