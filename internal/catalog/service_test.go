package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innkeeplabs/innkeep-backend/pkg/db"
	"github.com/innkeeplabs/innkeep-backend/pkg/db/models"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
	pkgerrors "github.com/innkeeplabs/innkeep-backend/pkg/errors"
	"github.com/innkeeplabs/innkeep-backend/pkg/keylock"
	"github.com/innkeeplabs/innkeep-backend/pkg/outbox"
	"github.com/innkeeplabs/innkeep-backend/pkg/pagination"
)

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit outside transaction")
	}
	f.events = append(f.events, event)
	return nil
}

func newTestService(t *testing.T) (Service, *gorm.DB, *fakeEmitter) {
	t.Helper()
	conn := newTestDB(t)
	emitter := &fakeEmitter{}
	svc, err := NewService(NewRepository(conn), db.FromConn(conn), keylock.NewRegistry(), emitter, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn, emitter
}

func TestCreateResourceValidation(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateResourceInput
	}{
		{
			name: "missingProperty",
			input: CreateResourceInput{
				Kind:          enums.ResourceKindRoom,
				CapacityModel: enums.CapacityModelExclusive,
				Name:          "101",
				Capacity:      1,
			},
		},
		{
			name: "roomMustBeExclusive",
			input: CreateResourceInput{
				PropertyID:    uuid.New(),
				Kind:          enums.ResourceKindRoom,
				CapacityModel: enums.CapacityModelConcurrent,
				Name:          "101",
				Capacity:      2,
			},
		},
		{
			name: "exclusiveCapacityNotOne",
			input: CreateResourceInput{
				PropertyID:    uuid.New(),
				Kind:          enums.ResourceKindTable,
				CapacityModel: enums.CapacityModelExclusive,
				Name:          "T1",
				Capacity:      4,
			},
		},
		{
			name: "quantityOnlyForInventory",
			input: CreateResourceInput{
				PropertyID:    uuid.New(),
				Kind:          enums.ResourceKindTable,
				CapacityModel: enums.CapacityModelQuantity,
				Name:          "T1",
				Capacity:      1,
			},
		},
		{
			name: "inventoryMustBeQuantity",
			input: CreateResourceInput{
				PropertyID:    uuid.New(),
				Kind:          enums.ResourceKindInventoryItem,
				CapacityModel: enums.CapacityModelExclusive,
				Name:          "towels",
				Capacity:      1,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateResource(ctx, tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error code, got %v", err)
			}
		})
	}
}

func TestCreateResourceQuantitySeedsStockLevel(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateResource(ctx, CreateResourceInput{
		PropertyID:    uuid.New(),
		Kind:          enums.ResourceKindInventoryItem,
		CapacityModel: enums.CapacityModelQuantity,
		Name:          "pool towels",
		Capacity:      1,
	})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if dto.Granularity != string(enums.GranularityContinuous) {
		t.Fatalf("expected continuous granularity, got %s", dto.Granularity)
	}

	var level models.StockLevel
	if err := conn.First(&level, "resource_id = ?", dto.ID).Error; err != nil {
		t.Fatalf("load stock level: %v", err)
	}
	if !level.CurrentStock.IsZero() || !level.ReservedStock.IsZero() {
		t.Fatalf("expected zeroed stock level, got %+v", level)
	}
}

func TestUpdateCapacityGuardsCommittedLoad(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateResource(ctx, CreateResourceInput{
		PropertyID:    uuid.New(),
		Kind:          enums.ResourceKindServiceSlot,
		CapacityModel: enums.CapacityModelConcurrent,
		Name:          "spa session",
		Capacity:      6,
	})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}

	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	reservation := models.Reservation{
		ResourceID: dto.ID,
		HolderID:   uuid.New(),
		Status:     enums.ReservationStatusConfirmed,
		StartsAt:   &start,
		EndsAt:     &end,
		Amount:     4,
	}
	if err := conn.Create(&reservation).Error; err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	slot := models.AvailabilitySlot{
		ResourceID:      dto.ID,
		BucketStart:     start,
		BucketEnd:       end,
		Capacity:        6,
		CommittedAmount: 4,
	}
	if err := conn.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	if _, err := svc.UpdateCapacity(ctx, dto.ID, 3); err == nil {
		t.Fatal("expected capacity guard to reject")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	updated, err := svc.UpdateCapacity(ctx, dto.ID, 8)
	if err != nil {
		t.Fatalf("grow capacity: %v", err)
	}
	if updated.Capacity != 8 {
		t.Fatalf("expected capacity 8, got %d", updated.Capacity)
	}

	var reloaded models.AvailabilitySlot
	if err := conn.First(&reloaded, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if reloaded.Capacity != 8 {
		t.Fatalf("expected slot capacity synced to 8, got %d", reloaded.Capacity)
	}
}

// The guard answers from the reservation ledger. A slot row drifted below the
// ledger must not loosen it.
func TestUpdateCapacityIgnoresDriftedSlots(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateResource(ctx, CreateResourceInput{
		PropertyID:    uuid.New(),
		Kind:          enums.ResourceKindServiceSlot,
		CapacityModel: enums.CapacityModelConcurrent,
		Name:          "tasting",
		Capacity:      4,
	})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}

	start := time.Date(2026, 6, 2, 18, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	reservation := models.Reservation{
		ResourceID: dto.ID,
		HolderID:   uuid.New(),
		Status:     enums.ReservationStatusConfirmed,
		StartsAt:   &start,
		EndsAt:     &end,
		Amount:     2,
	}
	if err := conn.Create(&reservation).Error; err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	slot := models.AvailabilitySlot{
		ResourceID:      dto.ID,
		BucketStart:     start,
		BucketEnd:       end,
		Capacity:        4,
		CommittedAmount: 1,
	}
	if err := conn.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	_, err = svc.UpdateCapacity(ctx, dto.ID, 1)
	if err == nil {
		t.Fatal("expected rejection from the ledger, not the drifted slot")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["max_committed"] != 2 {
		t.Fatalf("expected max committed 2 from the ledger, got %v", typed.Details())
	}
}

func TestRetireResource(t *testing.T) {
	t.Parallel()
	svc, _, emitter := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateResource(ctx, CreateResourceInput{
		PropertyID:    uuid.New(),
		Kind:          enums.ResourceKindRoom,
		CapacityModel: enums.CapacityModelExclusive,
		Name:          "101",
		Capacity:      1,
	})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}

	retired, err := svc.RetireResource(ctx, dto.ID)
	if err != nil {
		t.Fatalf("retire: %v", err)
	}
	if retired.RetiredAt == nil {
		t.Fatal("expected retired_at to be set")
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventResourceRetired {
		t.Fatalf("expected one retired event, got %+v", emitter.events)
	}

	// second retire is a no-op and emits nothing
	again, err := svc.RetireResource(ctx, dto.ID)
	if err != nil {
		t.Fatalf("retire again: %v", err)
	}
	if again.RetiredAt == nil || len(emitter.events) != 1 {
		t.Fatalf("expected idempotent retire, events=%d", len(emitter.events))
	}
}

func TestListResourcesPagination(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	propertyID := uuid.New()

	for i := 0; i < 3; i++ {
		name := string(rune('A' + i))
		if _, err := svc.CreateResource(ctx, CreateResourceInput{
			PropertyID:    propertyID,
			Kind:          enums.ResourceKindTable,
			CapacityModel: enums.CapacityModelConcurrent,
			Name:          "table " + name,
			Capacity:      4,
			Tags:          []string{"patio"},
		}); err != nil {
			t.Fatalf("create resource %d: %v", i, err)
		}
	}

	page, err := svc.ListResources(ctx, ListResourcesInput{
		PropertyID: propertyID,
		Pagination: pagination.Params{Limit: 2},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Resources) != 2 || page.NextCursor == "" {
		t.Fatalf("expected first page of 2 with cursor, got %d %q", len(page.Resources), page.NextCursor)
	}

	rest, err := svc.ListResources(ctx, ListResourcesInput{
		PropertyID: propertyID,
		Pagination: pagination.Params{Limit: 2, Cursor: page.NextCursor},
	})
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	if len(rest.Resources) != 1 || rest.NextCursor != "" {
		t.Fatalf("expected final page of 1, got %d %q", len(rest.Resources), rest.NextCursor)
	}

	tagged, err := svc.ListResources(ctx, ListResourcesInput{
		PropertyID: propertyID,
		Filters:    ResourceListFilters{Tag: "patio"},
		Pagination: pagination.Params{Limit: 10},
	})
	if err != nil {
		t.Fatalf("list tagged: %v", err)
	}
	if len(tagged.Resources) != 3 {
		t.Fatalf("expected 3 tagged resources, got %d", len(tagged.Resources))
	}
}
