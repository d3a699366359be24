package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/innkeeplabs/innkeep-backend/pkg/db/models"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
	"github.com/innkeeplabs/innkeep-backend/pkg/pagination"
)

// Repository wires together resource persistence helpers.
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

// CreateResource inserts a new resource row.
func (r *Repository) CreateResource(ctx context.Context, resource *models.Resource) (*models.Resource, error) {
	if err := r.db.WithContext(ctx).Create(resource).Error; err != nil {
		return nil, err
	}
	return resource, nil
}

// FindByID loads the resource without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	var resource models.Resource
	if err := r.db.WithContext(ctx).First(&resource, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

// FindByIDForUpdate loads the resource with a row lock where the dialect supports one.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
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

// Save persists the full resource row.
func (r *Repository) Save(ctx context.Context, resource *models.Resource) (*models.Resource, error) {
	if err := r.db.WithContext(ctx).Save(resource).Error; err != nil {
		return nil, err
	}
	return resource, nil
}

// ListByProperty returns a page of resources ordered by (created_at, id).
func (r *Repository) ListByProperty(ctx context.Context, input ListResourcesInput) ([]models.Resource, error) {
	q := r.db.WithContext(ctx).
		Where("property_id = ?", input.PropertyID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit))

	if input.Filters.Kind != nil {
		q = q.Where("kind = ?", *input.Filters.Kind)
	}
	if !input.Filters.IncludeRetired {
		q = q.Where("retired_at IS NULL")
	}
	if input.Filters.Tag != "" {
		q = q.Where("tags LIKE ?", fmt.Sprintf(`%%"%s"%%`, input.Filters.Tag))
	}

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at > ?) OR (created_at = ? AND id > ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Resource
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveTimed returns the confirmed reservations and unexpired pending
// holds that claim a window on the resource. The capacity guard derives
// committed load from these ledger rows, never from the materialized slots.
func (r *Repository) ListActiveTimed(ctx context.Context, resourceID uuid.UUID, now time.Time) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Where("starts_at IS NOT NULL").
		Where("(status = ? AND (expires_at IS NULL OR expires_at >= ?)) OR status = ?",
			enums.ReservationStatusPending, now, enums.ReservationStatusConfirmed).
		Find(&rows).Error
	return rows, err
}
