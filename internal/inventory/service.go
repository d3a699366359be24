package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/innkeeplabs/innkeep-backend/pkg/db"
	"github.com/innkeeplabs/innkeep-backend/pkg/db/models"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
	pkgerrors "github.com/innkeeplabs/innkeep-backend/pkg/errors"
	"github.com/innkeeplabs/innkeep-backend/pkg/keylock"
	"github.com/innkeeplabs/innkeep-backend/pkg/outbox"
	"github.com/innkeeplabs/innkeep-backend/pkg/outbox/payloads"
)

// StockDTO is the materialized quantity view returned to clients.
type StockDTO struct {
	ResourceID    uuid.UUID `json:"resource_id"`
	CurrentStock  string    `json:"current_stock"`
	ReservedStock string    `json:"reserved_stock"`
	Available     string    `json:"available"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newStockDTO(level *models.StockLevel) *StockDTO {
	return &StockDTO{
		ResourceID:    level.ResourceID,
		CurrentStock:  level.CurrentStock.String(),
		ReservedStock: level.ReservedStock.String(),
		Available:     level.Available().String(),
		UpdatedAt:     level.UpdatedAt,
	}
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the quantity ledger: every stock change is an append-only
// movement, and the stock_levels row is the running total over that ledger.
type Service struct {
	repo     *Repository
	dbClient *db.Client
	locks    *keylock.Registry
	outbox   outboxEmitter
	now      func() time.Time
}

// NewService constructs an inventory service instance.
func NewService(repo *Repository, dbClient *db.Client, locks *keylock.Registry, emitter outboxEmitter) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock registry required")
	}
	return &Service{
		repo:     repo,
		dbClient: dbClient,
		locks:    locks,
		outbox:   emitter,
		now:      time.Now,
	}, nil
}

// GetStock loads the materialized level row.
func (s *Service) GetStock(ctx context.Context, resourceID uuid.UUID) (*StockDTO, error) {
	level, err := s.repo.GetLevel(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock level not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock level")
	}
	return newStockDTO(level), nil
}

// InitialLoad records opening stock for a resource.
func (s *Service) InitialLoad(ctx context.Context, resourceID uuid.UUID, qty decimal.Decimal) (*StockDTO, error) {
	if qty.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial load must be positive")
	}
	return s.apply(ctx, resourceID, enums.MovementInitialLoad, qty, nil, nil,
		func(level *models.StockLevel) error {
			level.CurrentStock = level.CurrentStock.Add(qty)
			return nil
		})
}

// Adjust applies a signed manual correction to current stock.
func (s *Service) Adjust(ctx context.Context, resourceID uuid.UUID, delta decimal.Decimal) (*StockDTO, error) {
	if delta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment must be non-zero")
	}
	return s.apply(ctx, resourceID, enums.MovementAdjustment, delta, nil, nil,
		func(level *models.StockLevel) error {
			next := level.CurrentStock.Add(delta)
			if next.Sign() < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "adjustment drives stock negative")
			}
			if next.LessThan(level.ReservedStock) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "adjustment drives stock below reserved")
			}
			level.CurrentStock = next
			return nil
		})
}

// Waste records spoilage of unreserved stock.
func (s *Service) Waste(ctx context.Context, resourceID uuid.UUID, qty decimal.Decimal) (*StockDTO, error) {
	if qty.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "waste must be positive")
	}
	return s.apply(ctx, resourceID, enums.MovementWaste, qty, nil, nil,
		func(level *models.StockLevel) error {
			if level.Available().LessThan(qty) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "waste exceeds unreserved stock")
			}
			level.CurrentStock = level.CurrentStock.Sub(qty)
			return nil
		})
}

// Consume fulfils reserved stock: both current and reserved shrink.
func (s *Service) Consume(ctx context.Context, resourceID uuid.UUID, reservationID *uuid.UUID, qty decimal.Decimal) (*StockDTO, error) {
	if qty.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consume must be positive")
	}
	return s.apply(ctx, resourceID, enums.MovementConsume, qty, reservationID, nil,
		func(level *models.StockLevel) error {
			if level.ReservedStock.LessThan(qty) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "consume exceeds reserved stock")
			}
			level.CurrentStock = level.CurrentStock.Sub(qty)
			level.ReservedStock = level.ReservedStock.Sub(qty)
			return nil
		})
}

// apply serializes per resource, appends the movement, and updates the
// running totals in one transaction.
func (s *Service) apply(
	ctx context.Context,
	resourceID uuid.UUID,
	movementType enums.StockMovementType,
	qty decimal.Decimal,
	reservationID *uuid.UUID,
	holderID *uuid.UUID,
	mutate func(level *models.StockLevel) error,
) (*StockDTO, error) {
	release, err := s.locks.Acquire(ctx, keylock.ResourceKey(resourceID))
	if err != nil {
		if errors.Is(err, keylock.ErrTimeout) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, "stock lock")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock lock")
	}
	defer release()

	var result *models.StockLevel
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		level, err := s.mutateTx(ctx, tx, resourceID, movementType, qty, reservationID, holderID, mutate)
		if err != nil {
			return err
		}
		if s.outbox != nil && movementType != enums.MovementReserve && movementType != enums.MovementRelease {
			event := outbox.DomainEvent{
				EventType:     enums.EventStockAdjusted,
				AggregateType: enums.AggregateStockLevel,
				AggregateID:   resourceID,
				Version:       1,
				OccurredAt:    s.now().UTC(),
				Data: payloads.StockAdjustedEvent{
					ResourceID:   resourceID,
					MovementType: string(movementType),
					Quantity:     qty.String(),
					OccurredAt:   s.now().UTC(),
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: stock adjusted")
			}
		}
		result = level
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply stock movement")
	}

	return newStockDTO(result), nil
}

// mutateTx is the shared locked-transaction body. The caller must hold the
// per-resource lock.
func (s *Service) mutateTx(
	ctx context.Context,
	tx *gorm.DB,
	resourceID uuid.UUID,
	movementType enums.StockMovementType,
	qty decimal.Decimal,
	reservationID *uuid.UUID,
	holderID *uuid.UUID,
	mutate func(level *models.StockLevel) error,
) (*models.StockLevel, error) {
	txRepo := s.repo.WithTx(tx)

	level, err := txRepo.GetLevelForUpdate(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock level not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load stock level")
	}

	if err := mutate(level); err != nil {
		return nil, err
	}

	movement := &models.StockMovement{
		ResourceID:    resourceID,
		ReservationID: reservationID,
		HolderID:      holderID,
		MovementType:  movementType,
		Quantity:      qty,
	}
	if err := txRepo.AppendMovement(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: append movement")
	}
	if err := txRepo.SaveLevel(ctx, level); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save stock level")
	}
	return level, nil
}

// ReserveStockTx earmarks stock inside the coordinator's transaction. The
// caller already holds the per-resource lock.
func (s *Service) ReserveStockTx(ctx context.Context, tx *gorm.DB, resourceID, reservationID, holderID uuid.UUID, qty decimal.Decimal) error {
	if qty.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	_, err := s.mutateTx(ctx, tx, resourceID, enums.MovementReserve, qty, &reservationID, &holderID,
		func(level *models.StockLevel) error {
			if level.Available().LessThan(qty) {
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
					WithDetails(map[string]any{"available": level.Available().String()})
			}
			level.ReservedStock = level.ReservedStock.Add(qty)
			return nil
		})
	return err
}

// ReleaseStockTx returns earmarked stock inside the coordinator's transaction.
func (s *Service) ReleaseStockTx(ctx context.Context, tx *gorm.DB, resourceID, reservationID, holderID uuid.UUID, qty decimal.Decimal) error {
	if qty.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	_, err := s.mutateTx(ctx, tx, resourceID, enums.MovementRelease, qty, &reservationID, &holderID,
		func(level *models.StockLevel) error {
			if level.ReservedStock.LessThan(qty) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "release exceeds reserved stock")
			}
			level.ReservedStock = level.ReservedStock.Sub(qty)
			return nil
		})
	return err
}

// Replay recomputes the running totals from the ledger, starting at the most
// recent snapshot. It answers "why is stock wrong" without touching the live row.
func (s *Service) Replay(ctx context.Context, resourceID uuid.UUID) (current, reserved decimal.Decimal, err error) {
	snapshot, err := s.repo.LatestSnapshot(ctx, resourceID)
	if err != nil {
		return decimal.Zero, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: latest snapshot")
	}

	since := time.Time{}
	if snapshot != nil {
		if snapshot.CurrentAfter != nil {
			current = *snapshot.CurrentAfter
		}
		if snapshot.ReservedAfter != nil {
			reserved = *snapshot.ReservedAfter
		}
		since = snapshot.CreatedAt
	}

	movements, err := s.repo.ListMovementsSince(ctx, resourceID, since)
	if err != nil {
		return decimal.Zero, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list movements")
	}

	for _, m := range movements {
		switch m.MovementType {
		case enums.MovementInitialLoad:
			current = current.Add(m.Quantity)
		case enums.MovementReserve:
			reserved = reserved.Add(m.Quantity)
		case enums.MovementRelease:
			reserved = reserved.Sub(m.Quantity)
		case enums.MovementConsume:
			current = current.Sub(m.Quantity)
			reserved = reserved.Sub(m.Quantity)
		case enums.MovementWaste:
			current = current.Sub(m.Quantity)
		case enums.MovementAdjustment:
			current = current.Add(m.Quantity)
		case enums.MovementSnapshot:
			if m.CurrentAfter != nil {
				current = *m.CurrentAfter
			}
			if m.ReservedAfter != nil {
				reserved = *m.ReservedAfter
			}
		}
	}
	return current, reserved, nil
}

// Compact snapshots the running totals and truncates ledger entries older
// than the retention cutoff. Entries newer than the cutoff survive so recent
// history stays replayable.
func (s *Service) Compact(ctx context.Context, resourceID uuid.UUID, keep time.Duration, batch int) (int64, error) {
	release, err := s.locks.Acquire(ctx, keylock.ResourceKey(resourceID))
	if err != nil {
		if errors.Is(err, keylock.ErrTimeout) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, "stock lock")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock lock")
	}
	defer release()

	var removed int64
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		level, err := txRepo.GetLevelForUpdate(ctx, resourceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "stock level not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load stock level")
		}

		current := level.CurrentStock
		reserved := level.ReservedStock
		snapshot := &models.StockMovement{
			ResourceID:    resourceID,
			MovementType:  enums.MovementSnapshot,
			Quantity:      decimal.Zero,
			CurrentAfter:  &current,
			ReservedAfter: &reserved,
		}
		if err := txRepo.AppendMovement(ctx, snapshot); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: append snapshot")
		}

		cutoff := s.now().UTC().Add(-keep)
		removed, err = txRepo.DeleteMovementsBefore(ctx, resourceID, cutoff, batch)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: truncate ledger")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return 0, err
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compact ledger")
	}

	return removed, nil
}
