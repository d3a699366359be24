package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innkeeplabs/innkeep-backend/pkg/db/models"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
)

// Repository reads the materialized availability projections. It never touches
// the reservation ledger, so queries cannot contend with the commit path.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	var resource models.Resource
	if err := r.db.WithContext(ctx).First(&resource, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

// ListSlots returns the slot rows overlapping [start, end) ordered by bucket.
func (r *Repository) ListSlots(ctx context.Context, resourceID uuid.UUID, start, end time.Time) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND bucket_start < ? AND bucket_end > ?", resourceID, end, start).
		Order("bucket_start ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// ListActiveResources returns the property's non-retired resources, optionally
// narrowed by kind.
func (r *Repository) ListActiveResources(ctx context.Context, propertyID uuid.UUID, kind *enums.ResourceKind) ([]models.Resource, error) {
	query := r.db.WithContext(ctx).
		Where("property_id = ? AND retired_at IS NULL", propertyID)
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}
	var resources []models.Resource
	if err := query.Order("created_at ASC, id ASC").Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *Repository) FindStockLevel(ctx context.Context, resourceID uuid.UUID) (*models.StockLevel, error) {
	var level models.StockLevel
	if err := r.db.WithContext(ctx).First(&level, "resource_id = ?", resourceID).Error; err != nil {
		return nil, err
	}
	return &level, nil
}
