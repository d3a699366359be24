package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innkeeplabs/innkeep-backend/internal/reservation"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
	pkgerrors "github.com/innkeeplabs/innkeep-backend/pkg/errors"
	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
	redispkg "github.com/innkeeplabs/innkeep-backend/pkg/redis"
)

// BucketAvailability is the free capacity in one time bucket.
type BucketAvailability struct {
	Window    reservation.Window `json:"window"`
	Capacity  int                `json:"capacity"`
	Committed int                `json:"committed"`
	Free      int                `json:"free"`
}

// WindowAvailability is the answer to "can this window fit": the binding free
// capacity is the minimum across buckets.
type WindowAvailability struct {
	ResourceID uuid.UUID            `json:"resource_id"`
	Window     reservation.Window   `json:"window"`
	Free       int                  `json:"free"`
	Buckets    []BucketAvailability `json:"buckets"`
}

// Fits reports whether the window can absorb the requested amount.
func (w *WindowAvailability) Fits(amount int) bool {
	return amount > 0 && w.Free >= amount
}

// ResourceAvailability pairs a candidate resource with its free capacity over
// the queried window.
type ResourceAvailability struct {
	ResourceID uuid.UUID `json:"resource_id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Capacity   int       `json:"capacity"`
	Free       int       `json:"free"`
}

// StockAvailability is the quantity view for inventory resources.
type StockAvailability struct {
	ResourceID uuid.UUID `json:"resource_id"`
	Current    string    `json:"current"`
	Reserved   string    `json:"reserved"`
	Available  string    `json:"available"`
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	AvailabilityKey(parts ...string) string
}

// Service answers availability questions from the materialized projections.
// Answers are advisory: the coordinator re-derives load from the ledger before
// committing, so a stale cache can cost a round trip but never an overbooking.
type Service struct {
	repo          *Repository
	cache         cacheStore
	logg          *logger.Logger
	cacheTTL      time.Duration
	maxStayNights int
}

// NewService constructs the query service. cache may be nil, which disables
// the read-through layer.
func NewService(repo *Repository, cache cacheStore, logg *logger.Logger, cacheTTL time.Duration, maxStayNights int) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("availability repository required")
	}
	return &Service{
		repo:          repo,
		cache:         cache,
		logg:          logg,
		cacheTTL:      cacheTTL,
		maxStayNights: maxStayNights,
	}, nil
}

// CheckWindow reports free capacity per bucket for one resource.
func (s *Service) CheckWindow(ctx context.Context, resourceID uuid.UUID, window reservation.Window) (*WindowAvailability, error) {
	resource, err := s.repo.FindResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load resource")
	}
	if resource.CapacityModel == enums.CapacityModelQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity resources answer through the stock query")
	}

	normalized, err := reservation.NormalizeWindow(&window, resource.Granularity, s.maxStayNights)
	if err != nil {
		return nil, err
	}

	if cached := s.cachedWindow(ctx, resourceID, *normalized); cached != nil {
		return cached, nil
	}

	slots, err := s.repo.ListSlots(ctx, resourceID, normalized.Start, normalized.End)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list slots")
	}
	committed := make(map[int64]int, len(slots))
	for _, slot := range slots {
		committed[slot.BucketStart.Unix()] = slot.CommittedAmount
	}

	result := &WindowAvailability{
		ResourceID: resourceID,
		Window:     *normalized,
		Free:       resource.Capacity,
	}
	for _, bucket := range normalized.Buckets(resource.Granularity) {
		used := committed[bucket.Start.Unix()]
		free := resource.Capacity - used
		if free < 0 {
			free = 0
		}
		if free < result.Free {
			result.Free = free
		}
		result.Buckets = append(result.Buckets, BucketAvailability{
			Window:    bucket,
			Capacity:  resource.Capacity,
			Committed: used,
			Free:      free,
		})
	}

	s.storeWindow(ctx, resourceID, result)
	return result, nil
}

// ListAvailable returns the property's timed resources that can absorb amount
// over the window, optionally narrowed by kind.
func (s *Service) ListAvailable(ctx context.Context, propertyID uuid.UUID, window reservation.Window, amount int, kind *enums.ResourceKind) ([]ResourceAvailability, error) {
	if propertyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "property_id is required")
	}
	if amount < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1")
	}

	resources, err := s.repo.ListActiveResources(ctx, propertyID, kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list resources")
	}

	matches := make([]ResourceAvailability, 0, len(resources))
	for i := range resources {
		resource := &resources[i]
		if resource.CapacityModel == enums.CapacityModelQuantity {
			continue
		}
		check, err := s.CheckWindow(ctx, resource.ID, window)
		if err != nil {
			// a window invalid for this granularity just excludes the resource
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInvalidWindow {
				continue
			}
			return nil, err
		}
		if !check.Fits(amount) {
			continue
		}
		matches = append(matches, ResourceAvailability{
			ResourceID: resource.ID,
			Name:       resource.Name,
			Kind:       string(resource.Kind),
			Capacity:   resource.Capacity,
			Free:       check.Free,
		})
	}
	return matches, nil
}

// Stock returns the quantity availability for an inventory resource.
func (s *Service) Stock(ctx context.Context, resourceID uuid.UUID) (*StockAvailability, error) {
	level, err := s.repo.FindStockLevel(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock level not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load stock level")
	}
	return &StockAvailability{
		ResourceID: resourceID,
		Current:    level.CurrentStock.String(),
		Reserved:   level.ReservedStock.String(),
		Available:  level.Available().String(),
	}, nil
}

// InvalidateResource bumps the resource's cache generation so subsequent reads
// recompute. Failures are logged and swallowed: the entry still ages out.
func (s *Service) InvalidateResource(ctx context.Context, resourceID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, s.versionKey(resourceID)); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithResourceID(ctx, resourceID.String()), "availability cache invalidation failed")
	}
}

func (s *Service) versionKey(resourceID uuid.UUID) string {
	return s.cache.AvailabilityKey("ver", resourceID.String())
}

func (s *Service) windowKey(ctx context.Context, resourceID uuid.UUID, window reservation.Window) string {
	version, err := s.cache.Get(ctx, s.versionKey(resourceID))
	if err != nil {
		version = "0"
	}
	return s.cache.AvailabilityKey(
		resourceID.String(),
		version,
		strconv.FormatInt(window.Start.Unix(), 10),
		strconv.FormatInt(window.End.Unix(), 10),
	)
}

func (s *Service) cachedWindow(ctx context.Context, resourceID uuid.UUID, window reservation.Window) *WindowAvailability {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.windowKey(ctx, resourceID, window))
	if err != nil {
		if !errors.Is(err, redispkg.Nil) && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "availability cache read failed")
		}
		return nil
	}
	var cached WindowAvailability
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil
	}
	return &cached
}

func (s *Service) storeWindow(ctx context.Context, resourceID uuid.UUID, result *WindowAvailability) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.windowKey(ctx, resourceID, result.Window), string(raw), s.cacheTTL); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "availability cache write failed")
	}
}
