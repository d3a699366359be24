package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innkeeplabs/innkeep-backend/pkg/db"
	"github.com/innkeeplabs/innkeep-backend/pkg/db/models"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
	pkgerrors "github.com/innkeeplabs/innkeep-backend/pkg/errors"
	"github.com/innkeeplabs/innkeep-backend/pkg/keylock"
	"github.com/innkeeplabs/innkeep-backend/pkg/outbox"
	"github.com/innkeeplabs/innkeep-backend/pkg/outbox/payloads"
	"github.com/innkeeplabs/innkeep-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

// Service exposes resource catalog operations.
type Service interface {
	CreateResource(ctx context.Context, input CreateResourceInput) (*ResourceDTO, error)
	GetResource(ctx context.Context, resourceID uuid.UUID) (*ResourceDTO, error)
	UpdateCapacity(ctx context.Context, resourceID uuid.UUID, newCapacity int) (*ResourceDTO, error)
	RetireResource(ctx context.Context, resourceID uuid.UUID) (*ResourceDTO, error)
	ListResources(ctx context.Context, input ListResourcesInput) (*ResourceListResult, error)
}

// CreateResourceInput holds the validated payload to create a resource.
type CreateResourceInput struct {
	PropertyID    uuid.UUID
	Kind          enums.ResourceKind
	CapacityModel enums.CapacityModel
	Name          string
	Capacity      int
	Tags          []string
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cacheInvalidator interface {
	InvalidateResource(ctx context.Context, resourceID uuid.UUID)
}

// service implements the catalog service.
type service struct {
	repo     *Repository
	dbClient *db.Client
	locks    *keylock.Registry
	outbox   outboxEmitter
	cache    cacheInvalidator
	now      func() time.Time
}

// NewService constructs a catalog service instance. The lock registry must be
// the one the reservation coordinator serializes on.
func NewService(repo *Repository, dbClient *db.Client, locks *keylock.Registry, emitter outboxEmitter, cache cacheInvalidator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock registry required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		locks:    locks,
		outbox:   emitter,
		cache:    cache,
		now:      time.Now,
	}, nil
}

// CreateResource creates the resource and, for quantity models, its empty stock row.
func (s *service) CreateResource(ctx context.Context, input CreateResourceInput) (*ResourceDTO, error) {
	if input.PropertyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "property_id is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown resource kind %q", input.Kind))
	}
	if !input.CapacityModel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown capacity model %q", input.CapacityModel))
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validateKindModel(input.Kind, input.CapacityModel, input.Capacity); err != nil {
		return nil, err
	}

	resource := &models.Resource{
		PropertyID:    input.PropertyID,
		Kind:          input.Kind,
		CapacityModel: input.CapacityModel,
		Granularity:   input.Kind.Granularity(),
		Name:          strings.TrimSpace(input.Name),
		Capacity:      input.Capacity,
		Tags:          input.Tags,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.CreateResource(ctx, resource); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert resource")
		}
		if input.CapacityModel == enums.CapacityModelQuantity {
			level := &models.StockLevel{
				ResourceID:    resource.ID,
				CurrentStock:  decimal.Zero,
				ReservedStock: decimal.Zero,
			}
			if err := tx.Create(level).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert stock level")
			}
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create resource")
	}

	return NewResourceDTO(resource), nil
}

// GetResource loads one resource by id.
func (s *service) GetResource(ctx context.Context, resourceID uuid.UUID) (*ResourceDTO, error) {
	resource, err := s.repo.FindByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load resource")
	}
	return NewResourceDTO(resource), nil
}

// UpdateCapacity changes the resource capacity. Shrinking below the maximum
// committed load anywhere on the calendar is rejected; that maximum is derived
// from the reservation ledger inside the transaction, serialized against the
// coordinator on the per-resource lock.
func (s *service) UpdateCapacity(ctx context.Context, resourceID uuid.UUID, newCapacity int) (*ResourceDTO, error) {
	if newCapacity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be at least 1")
	}

	release, err := s.acquire(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *models.Resource
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		resource, err := txRepo.FindByIDForUpdate(ctx, resourceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load resource")
		}
		if resource.Retired() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "resource is retired")
		}
		if resource.CapacityModel == enums.CapacityModelQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity resources adjust stock through the ledger, not capacity")
		}
		if resource.CapacityModel == enums.CapacityModelExclusive && newCapacity != 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "exclusive resources have capacity 1")
		}

		active, err := txRepo.ListActiveTimed(ctx, resourceID, s.now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list active reservations")
		}
		maxLoad := maxCommittedLoad(active)
		if newCapacity < maxLoad {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "capacity below committed load").
				WithDetails(map[string]any{"max_committed": maxLoad})
		}

		resource.Capacity = newCapacity
		if _, err := txRepo.Save(ctx, resource); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update resource")
		}

		// keep the materialized slots' capacity column in step
		if err := tx.Model(&models.AvailabilitySlot{}).
			Where("resource_id = ?", resourceID).
			Update("capacity", newCapacity).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update slot capacity")
		}

		updated = resource
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update capacity")
	}

	if s.cache != nil {
		s.cache.InvalidateResource(ctx, resourceID)
	}
	return NewResourceDTO(updated), nil
}

// RetireResource removes the resource from the bookable pool but keeps history.
// Retiring an already retired resource is a no-op.
func (s *service) RetireResource(ctx context.Context, resourceID uuid.UUID) (*ResourceDTO, error) {
	var updated *models.Resource
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		resource, err := txRepo.FindByIDForUpdate(ctx, resourceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load resource")
		}
		if resource.Retired() {
			updated = resource
			return nil
		}

		retiredAt := s.now().UTC()
		resource.RetiredAt = &retiredAt
		if _, err := txRepo.Save(ctx, resource); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: retire resource")
		}

		if s.outbox != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventResourceRetired,
				AggregateType: enums.AggregateResource,
				AggregateID:   resource.ID,
				Version:       1,
				OccurredAt:    retiredAt,
				Data: payloads.ResourceRetiredEvent{
					ResourceID: resource.ID,
					PropertyID: resource.PropertyID,
					RetiredAt:  retiredAt,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: resource retired")
			}
		}

		updated = resource
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retire resource")
	}

	if s.cache != nil {
		s.cache.InvalidateResource(ctx, resourceID)
	}
	return NewResourceDTO(updated), nil
}

// ListResources pages through a property's resources.
func (s *service) ListResources(ctx context.Context, input ListResourcesInput) (*ResourceListResult, error) {
	if input.PropertyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "property_id is required")
	}

	rows, err := s.repo.ListByProperty(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list resources")
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	result := &ResourceListResult{Resources: make([]ResourceDTO, 0, len(rows))}
	for i := range rows {
		if i >= limit {
			last := rows[limit-1]
			result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
			break
		}
		result.Resources = append(result.Resources, *NewResourceDTO(&rows[i]))
	}
	return result, nil
}

func validateKindModel(kind enums.ResourceKind, model enums.CapacityModel, capacity int) error {
	switch kind {
	case enums.ResourceKindInventoryItem:
		if model != enums.CapacityModelQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "inventory items use the quantity capacity model")
		}
		return nil
	case enums.ResourceKindRoom:
		if model != enums.CapacityModelExclusive {
			return pkgerrors.New(pkgerrors.CodeValidation, "rooms use the exclusive capacity model")
		}
	default:
		if model == enums.CapacityModelQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "only inventory items use the quantity capacity model")
		}
	}

	if model == enums.CapacityModelExclusive && capacity != 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "exclusive resources have capacity 1")
	}
	if capacity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "capacity must be at least 1")
	}
	return nil
}

// acquire takes the per-resource lock shared with the reservation coordinator.
func (s *service) acquire(ctx context.Context, resourceID uuid.UUID) (func(), error) {
	release, err := s.locks.Acquire(ctx, keylock.ResourceKey(resourceID))
	if err != nil {
		if errors.Is(err, keylock.ErrTimeout) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, "resource lock")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resource lock")
	}
	return release, nil
}

// maxCommittedLoad sweeps the reservation windows and returns the highest
// amount committed at any single instant. Windows are half open, so a
// reservation ending exactly when another starts never overlaps it.
func maxCommittedLoad(rows []models.Reservation) int {
	type boundary struct {
		at    time.Time
		delta int
	}
	points := make([]boundary, 0, len(rows)*2)
	for i := range rows {
		if rows[i].StartsAt == nil || rows[i].EndsAt == nil {
			continue
		}
		points = append(points, boundary{at: *rows[i].StartsAt, delta: rows[i].Amount})
		points = append(points, boundary{at: *rows[i].EndsAt, delta: -rows[i].Amount})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].at.Equal(points[j].at) {
			return points[i].delta < points[j].delta
		}
		return points[i].at.Before(points[j].at)
	})

	load, max := 0, 0
	for _, p := range points {
		load += p.delta
		if load > max {
			max = load
		}
	}
	return max
}
