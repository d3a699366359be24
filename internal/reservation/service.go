package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/innkeeplabs/innkeep-backend/pkg/config"
	"github.com/innkeeplabs/innkeep-backend/pkg/db"
	"github.com/innkeeplabs/innkeep-backend/pkg/db/models"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
	pkgerrors "github.com/innkeeplabs/innkeep-backend/pkg/errors"
	"github.com/innkeeplabs/innkeep-backend/pkg/keylock"
	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
	"github.com/innkeeplabs/innkeep-backend/pkg/outbox"
	"github.com/innkeeplabs/innkeep-backend/pkg/outbox/payloads"
)

// ReserveInput holds the validated payload for one reserve attempt.
type ReserveInput struct {
	ResourceID uuid.UUID
	HolderID   uuid.UUID
	Window     *Window
	Amount     int
	Quantity   *decimal.Decimal
	Mode       enums.ReservationMode
	HoldTTL    time.Duration
}

// ReleaseInput optionally narrows a release to part of the reservation.
type ReleaseInput struct {
	Amount   *int
	Quantity *decimal.Decimal
}

// Service is the reservation coordinator: the single mutation path for the
// ledger. Every status change runs serialized per resource with capacity
// rechecked against the ledger, never against the materialized slots.
type Service interface {
	Reserve(ctx context.Context, input ReserveInput) (*ReservationDTO, error)
	Confirm(ctx context.Context, reservationID uuid.UUID) (*ReservationDTO, error)
	Cancel(ctx context.Context, reservationID uuid.UUID) (*ReservationDTO, error)
	Release(ctx context.Context, reservationID uuid.UUID, input ReleaseInput) (*ReservationDTO, error)
	Get(ctx context.Context, reservationID uuid.UUID) (*ReservationDTO, error)
	SweepExpiredHolds(ctx context.Context, limit int) (int, error)
	ReconcileSlots(ctx context.Context, resourceID uuid.UUID) (int, error)
}

type resourceLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Resource, error)
}

type stockReserver interface {
	ReserveStockTx(ctx context.Context, tx *gorm.DB, resourceID, reservationID, holderID uuid.UUID, qty decimal.Decimal) error
	ReleaseStockTx(ctx context.Context, tx *gorm.DB, resourceID, reservationID, holderID uuid.UUID, qty decimal.Decimal) error
}

type cacheInvalidator interface {
	InvalidateResource(ctx context.Context, resourceID uuid.UUID)
}

type service struct {
	repo      *Repository
	dbClient  *db.Client
	resources resourceLoader
	stock     stockReserver
	locks     *keylock.Registry
	outbox    outboxEmitter
	cache     cacheInvalidator
	logg      *logger.Logger
	cfg       config.ReservationsConfig
	now       func() time.Time
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// NewService constructs the coordinator.
func NewService(
	repo *Repository,
	dbClient *db.Client,
	resources resourceLoader,
	stock stockReserver,
	locks *keylock.Registry,
	emitter outboxEmitter,
	cache cacheInvalidator,
	logg *logger.Logger,
	cfg config.ReservationsConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if resources == nil {
		return nil, fmt.Errorf("resource loader required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock registry required")
	}
	return &service{
		repo:      repo,
		dbClient:  dbClient,
		resources: resources,
		stock:     stock,
		locks:     locks,
		outbox:    emitter,
		cache:     cache,
		logg:      logg,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// Reserve validates capacity and commits (or holds) a reservation in a single
// serialized unit per resource. First committer wins; losers get Conflict
// naming the first conflicting sub-window.
func (s *service) Reserve(ctx context.Context, input ReserveInput) (*ReservationDTO, error) {
	if input.HolderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "holder_id is required")
	}
	if input.Mode == "" {
		input.Mode = enums.ModeCommit
	}
	if !input.Mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown reservation mode %q", input.Mode))
	}

	resource, err := s.loadResource(ctx, input.ResourceID)
	if err != nil {
		return nil, err
	}
	if resource.Retired() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "resource is retired")
	}

	if resource.CapacityModel == enums.CapacityModelQuantity {
		return s.reserveQuantity(ctx, resource, input)
	}
	return s.reserveTimed(ctx, resource, input)
}

func (s *service) reserveTimed(ctx context.Context, resource *models.Resource, input ReserveInput) (*ReservationDTO, error) {
	window, err := NormalizeWindow(input.Window, resource.Granularity, s.cfg.MaxStayNights)
	if err != nil {
		return nil, err
	}
	if input.Quantity != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "timed resources take an amount, not a quantity")
	}
	if input.Amount < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1")
	}
	if resource.CapacityModel == enums.CapacityModelExclusive && input.Amount != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exclusive resources are reserved with amount 1")
	}
	if input.Amount > resource.Capacity {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "amount exceeds resource capacity").
			WithDetails(map[string]any{"capacity": resource.Capacity})
	}

	release, err := s.acquire(ctx, resource.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	var created *models.Reservation
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		now := s.now().UTC()

		// the capacity read before the lock is advisory; the row read here,
		// serialized with capacity updates, is the one the commit checks.
		fresh, err := txRepo.FindResource(ctx, resource.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload resource")
		}
		if fresh.Retired() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "resource is retired")
		}
		if input.Amount > fresh.Capacity {
			return pkgerrors.New(pkgerrors.CodeConflict, "amount exceeds resource capacity").
				WithDetails(map[string]any{"capacity": fresh.Capacity})
		}
		resource = fresh

		active, err := txRepo.ListActiveOverlapping(ctx, resource.ID, window.Start, window.End)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list overlapping")
		}
		live, err := s.expireOverdueTx(ctx, tx, resource, active, now)
		if err != nil {
			return err
		}

		buckets := window.Buckets(resource.Granularity)
		for _, bucket := range buckets {
			load := 0
			for i := range live {
				if reservationOverlaps(&live[i], bucket) {
					load += live[i].Amount
				}
			}
			if load+input.Amount > resource.Capacity {
				return pkgerrors.New(pkgerrors.CodeConflict, "capacity exceeded").
					WithDetails(map[string]any{"conflicting_window": bucket})
			}
		}

		reservation := &models.Reservation{
			ResourceID: resource.ID,
			HolderID:   input.HolderID,
			Mode:       input.Mode,
			StartsAt:   &window.Start,
			EndsAt:     &window.End,
			Amount:     input.Amount,
		}
		s.applyMode(reservation, input, now)

		if _, err := txRepo.CreateReservation(ctx, reservation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert reservation")
		}
		for _, bucket := range buckets {
			if err := txRepo.ApplySlotDelta(ctx, resource.ID, bucket, resource.Capacity, input.Amount); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update slot")
			}
		}
		if err := s.emitTransition(ctx, tx, reservation, now); err != nil {
			return err
		}

		created = reservation
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve")
	}

	s.invalidate(ctx, resource.ID)
	return NewReservationDTO(created), nil
}

func (s *service) reserveQuantity(ctx context.Context, resource *models.Resource, input ReserveInput) (*ReservationDTO, error) {
	if input.Window != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidWindow, "quantity resources take no time window")
	}
	if input.Quantity == nil || input.Quantity.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	release, err := s.acquire(ctx, resource.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	var created *models.Reservation
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		now := s.now().UTC()

		reservation := &models.Reservation{
			ResourceID: resource.ID,
			HolderID:   input.HolderID,
			Mode:       input.Mode,
			Amount:     1,
			Quantity:   input.Quantity,
		}
		s.applyMode(reservation, input, now)

		if _, err := txRepo.CreateReservation(ctx, reservation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert reservation")
		}
		if err := s.stock.ReserveStockTx(ctx, tx, resource.ID, reservation.ID, input.HolderID, *input.Quantity); err != nil {
			return err
		}
		if err := s.emitTransition(ctx, tx, reservation, now); err != nil {
			return err
		}

		created = reservation
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve quantity")
	}

	s.invalidate(ctx, resource.ID)
	return NewReservationDTO(created), nil
}

// Confirm promotes a pending hold. A hold past its TTL is expired first, so
// confirm can never race the sweeper into an illegal state.
func (s *service) Confirm(ctx context.Context, reservationID uuid.UUID) (*ReservationDTO, error) {
	return s.transition(ctx, reservationID, enums.ReservationStatusConfirmed, ReleaseInput{})
}

// Cancel voids a confirmed reservation and returns its committed load.
func (s *service) Cancel(ctx context.Context, reservationID uuid.UUID) (*ReservationDTO, error) {
	return s.transition(ctx, reservationID, enums.ReservationStatusCancelled, ReleaseInput{})
}

// Release frees a confirmed reservation's load, optionally partially for
// concurrent amounts or stock quantities. Releasing more than remains is
// rejected, never clamped.
func (s *service) Release(ctx context.Context, reservationID uuid.UUID, input ReleaseInput) (*ReservationDTO, error) {
	return s.transition(ctx, reservationID, enums.ReservationStatusReleased, input)
}

// Get loads a reservation. A pending hold past its TTL reads as expired even
// before the sweeper has transitioned it.
func (s *service) Get(ctx context.Context, reservationID uuid.UUID) (*ReservationDTO, error) {
	reservation, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}

	dto := NewReservationDTO(reservation)
	if reservation.HoldExpired(s.now().UTC()) {
		dto.Status = string(enums.ReservationStatusExpired)
	}
	return dto, nil
}

// SweepExpiredHolds expires lapsed pending holds through the locked path.
// Returns how many holds were expired.
func (s *service) SweepExpiredHolds(ctx context.Context, limit int) (int, error) {
	lapsed, err := s.repo.ListExpiredPending(ctx, s.now().UTC(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list expired holds")
	}

	expired := 0
	for i := range lapsed {
		if err := s.expireOne(ctx, lapsed[i].ID); err != nil {
			// already confirmed or expired by a concurrent caller; skip
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// ReconcileSlots recomputes a resource's slot projections from the ledger and
// repairs any drift, recreating slot rows the ledger says must exist. Lapsed
// holds found along the way are expired for real, through the same transition
// the sweeper uses, so a later sweep never returns their load twice.
// Returns how many buckets were corrected.
func (s *service) ReconcileSlots(ctx context.Context, resourceID uuid.UUID) (int, error) {
	release, err := s.acquire(ctx, resourceID)
	if err != nil {
		return 0, err
	}
	defer release()

	corrected := 0
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		resource, err := txRepo.FindResource(ctx, resourceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload resource")
		}

		active, err := txRepo.ListActiveTimed(ctx, resourceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list active reservations")
		}
		now := s.now().UTC()
		live, err := s.expireOverdueTx(ctx, tx, resource, active, now)
		if err != nil {
			return err
		}

		// slots are read after the expiry pass so the recompute starts from
		// the rows the expiries already decremented
		slots, err := txRepo.ListSlotsByResource(ctx, resourceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list slots")
		}

		known := make(map[int64]int, len(slots))
		for i := range slots {
			known[slots[i].BucketStart.Unix()] = i
		}
		for i := range live {
			if live[i].StartsAt == nil || live[i].EndsAt == nil {
				continue
			}
			window := Window{Start: *live[i].StartsAt, End: *live[i].EndsAt}
			for _, bucket := range window.Buckets(resource.Granularity) {
				if _, ok := known[bucket.Start.Unix()]; ok {
					continue
				}
				slots = append(slots, models.AvailabilitySlot{
					ResourceID:  resourceID,
					BucketStart: bucket.Start,
					BucketEnd:   bucket.End,
					Capacity:    resource.Capacity,
				})
				known[bucket.Start.Unix()] = len(slots) - 1
			}
		}

		for i := range slots {
			bucket := Window{Start: slots[i].BucketStart, End: slots[i].BucketEnd}
			load := 0
			for j := range live {
				if reservationOverlaps(&live[j], bucket) {
					load += live[j].Amount
				}
			}
			if slots[i].ID != uuid.Nil && slots[i].CommittedAmount == load && slots[i].Capacity == resource.Capacity {
				continue
			}
			slots[i].CommittedAmount = load
			slots[i].Capacity = resource.Capacity
			if err := txRepo.SaveSlot(ctx, &slots[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save slot")
			}
			corrected++
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return 0, err
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile slots")
	}

	if corrected > 0 {
		s.invalidate(ctx, resourceID)
	}
	return corrected, nil
}

func (s *service) expireOne(ctx context.Context, reservationID uuid.UUID) error {
	reservation, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}

	resource, err := s.loadResource(ctx, reservation.ResourceID)
	if err != nil {
		return err
	}

	release, err := s.acquire(ctx, resource.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, reservationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload reservation")
		}
		now := s.now().UTC()
		if !current.HoldExpired(now) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "hold is not expired")
		}
		return s.expireReservationTx(ctx, tx, resource, current, now)
	}); err != nil {
		return err
	}

	s.invalidate(ctx, resource.ID)
	return nil
}

// transition runs confirm/cancel/release under the per-resource lock.
func (s *service) transition(ctx context.Context, reservationID uuid.UUID, target enums.ReservationStatus, input ReleaseInput) (*ReservationDTO, error) {
	reservation, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}

	resource, err := s.loadResource(ctx, reservation.ResourceID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, resource.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *models.Reservation
	var expiredOnRead bool
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, reservationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload reservation")
		}
		now := s.now().UTC()

		// check-on-read: a lapsed hold expires before we act on it. The expiry
		// must commit even though the caller's transition fails, so the error
		// is surfaced after the transaction.
		if current.HoldExpired(now) {
			expiredOnRead = true
			return s.expireReservationTx(ctx, tx, resource, current, now)
		}

		if !current.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move %s reservation to %s", current.Status, target))
		}

		switch target {
		case enums.ReservationStatusConfirmed:
			current.Status = enums.ReservationStatusConfirmed
			current.ConfirmedAt = &now
			current.ExpiresAt = nil
		case enums.ReservationStatusCancelled:
			if err := s.returnLoadTx(ctx, tx, resource, current, fullRelease(current)); err != nil {
				return err
			}
			current.Status = enums.ReservationStatusCancelled
			current.CancelledAt = &now
		case enums.ReservationStatusReleased:
			done, err := s.partialReleaseTx(ctx, tx, resource, current, input)
			if err != nil {
				return err
			}
			if !done {
				// partial release keeps the reservation confirmed
				current.Version++
				if _, err := s.repo.WithTx(tx).Save(ctx, current); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save reservation")
				}
				if err := s.emitEvent(ctx, tx, current, enums.EventReservationReleased, now); err != nil {
					return err
				}
				result = current
				return nil
			}
			current.Status = enums.ReservationStatusReleased
			current.ReleasedAt = &now
		}

		current.Version++
		if _, err := s.repo.WithTx(tx).Save(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save reservation")
		}
		if err := s.emitTransition(ctx, tx, current, now); err != nil {
			return err
		}

		result = current
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition reservation")
	}

	s.invalidate(ctx, resource.ID)
	if expiredOnRead {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "hold expired")
	}
	return NewReservationDTO(result), nil
}

// partialReleaseTx returns the requested load and reports whether the
// reservation is now fully released.
func (s *service) partialReleaseTx(ctx context.Context, tx *gorm.DB, resource *models.Resource, current *models.Reservation, input ReleaseInput) (bool, error) {
	if resource.CapacityModel == enums.CapacityModelQuantity {
		remaining := decimal.Zero
		if current.Quantity != nil {
			remaining = *current.Quantity
		}
		requested := remaining
		if input.Quantity != nil {
			requested = *input.Quantity
		}
		if requested.Sign() <= 0 {
			return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if requested.GreaterThan(remaining) {
			return false, pkgerrors.New(pkgerrors.CodeStateConflict, "release exceeds reservation").
				WithDetails(map[string]any{"reserved": remaining.String()})
		}
		if err := s.stock.ReleaseStockTx(ctx, tx, resource.ID, current.ID, current.HolderID, requested); err != nil {
			return false, err
		}
		left := remaining.Sub(requested)
		current.Quantity = &left
		return left.IsZero(), nil
	}

	requested := current.Amount
	if input.Amount != nil {
		requested = *input.Amount
	}
	if requested < 1 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1")
	}
	if requested > current.Amount {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, "release exceeds reservation").
			WithDetails(map[string]any{"reserved": current.Amount})
	}
	if err := s.returnLoadTx(ctx, tx, resource, current, requested); err != nil {
		return false, err
	}
	current.Amount -= requested
	return current.Amount == 0, nil
}

// returnLoadTx hands committed load back to the index: slot decrements for
// timed resources, a release movement for stock.
func (s *service) returnLoadTx(ctx context.Context, tx *gorm.DB, resource *models.Resource, reservation *models.Reservation, amount int) error {
	if resource.CapacityModel == enums.CapacityModelQuantity {
		qty := decimal.Zero
		if reservation.Quantity != nil {
			qty = *reservation.Quantity
		}
		if qty.IsZero() {
			return nil
		}
		// the row keeps its reserved quantity for history; the stock release
		// movement is the record of the return
		return s.stock.ReleaseStockTx(ctx, tx, resource.ID, reservation.ID, reservation.HolderID, qty)
	}

	if reservation.StartsAt == nil || reservation.EndsAt == nil {
		return nil
	}
	window := Window{Start: *reservation.StartsAt, End: *reservation.EndsAt}
	txRepo := s.repo.WithTx(tx)
	for _, bucket := range window.Buckets(resource.Granularity) {
		if err := txRepo.ApplySlotDelta(ctx, resource.ID, bucket, resource.Capacity, -amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update slot")
		}
	}
	return nil
}

func fullRelease(reservation *models.Reservation) int {
	return reservation.Amount
}

// expireReservationTx moves a lapsed hold to Expired and returns its load.
func (s *service) expireReservationTx(ctx context.Context, tx *gorm.DB, resource *models.Resource, reservation *models.Reservation, now time.Time) error {
	if err := s.returnLoadTx(ctx, tx, resource, reservation, reservation.Amount); err != nil {
		return err
	}
	reservation.Status = enums.ReservationStatusExpired
	reservation.ExpiredAt = &now
	reservation.Version++
	if _, err := s.repo.WithTx(tx).Save(ctx, reservation); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: expire reservation")
	}
	return s.emitTransition(ctx, tx, reservation, now)
}

// expireOverdueTx expires lapsed holds found among the overlapping rows and
// returns the reservations that still occupy capacity.
func (s *service) expireOverdueTx(ctx context.Context, tx *gorm.DB, resource *models.Resource, active []models.Reservation, now time.Time) ([]models.Reservation, error) {
	live := make([]models.Reservation, 0, len(active))
	for i := range active {
		if active[i].HoldExpired(now) {
			if err := s.expireReservationTx(ctx, tx, resource, &active[i], now); err != nil {
				return nil, err
			}
			continue
		}
		live = append(live, active[i])
	}
	return live, nil
}

func (s *service) applyMode(reservation *models.Reservation, input ReserveInput, now time.Time) {
	if input.Mode == enums.ModeHold {
		ttl := input.HoldTTL
		if ttl <= 0 {
			ttl = s.cfg.DefaultHoldTTL
		}
		if s.cfg.MaxHoldTTL > 0 && ttl > s.cfg.MaxHoldTTL {
			ttl = s.cfg.MaxHoldTTL
		}
		expires := now.Add(ttl)
		reservation.Status = enums.ReservationStatusPending
		reservation.ExpiresAt = &expires
		return
	}
	reservation.Status = enums.ReservationStatusConfirmed
	reservation.ConfirmedAt = &now
}

func (s *service) emitTransition(ctx context.Context, tx *gorm.DB, reservation *models.Reservation, now time.Time) error {
	eventType, err := enums.EventTypeForStatus(reservation.Status)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "map transition event")
	}
	return s.emitEvent(ctx, tx, reservation, eventType, now)
}

func (s *service) emitEvent(ctx context.Context, tx *gorm.DB, reservation *models.Reservation, eventType enums.OutboxEventType, now time.Time) error {
	if s.outbox == nil {
		return nil
	}

	payload := payloads.ReservationStateChangedEvent{
		ReservationID: reservation.ID,
		ResourceID:    reservation.ResourceID,
		HolderID:      reservation.HolderID,
		Status:        string(reservation.Status),
		StartsAt:      reservation.StartsAt,
		EndsAt:        reservation.EndsAt,
		Amount:        reservation.Amount,
		OccurredAt:    now,
	}
	if reservation.Quantity != nil {
		payload.Quantity = reservation.Quantity.String()
	}

	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateReservation,
		AggregateID:   reservation.ID,
		Actor:         &outbox.ActorRef{HolderID: reservation.HolderID},
		Version:       1,
		OccurredAt:    now,
		Data:          payload,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: reservation transition")
	}
	return nil
}

func (s *service) loadResource(ctx context.Context, resourceID uuid.UUID) (*models.Resource, error) {
	resource, err := s.resources.FindByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load resource")
	}
	return resource, nil
}

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

func (s *service) invalidate(ctx context.Context, resourceID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateResource(ctx, resourceID)
}

func reservationOverlaps(r *models.Reservation, bucket Window) bool {
	if r.StartsAt == nil || r.EndsAt == nil {
		return false
	}
	return r.StartsAt.Before(bucket.End) && bucket.Start.Before(*r.EndsAt)
}
