package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
)

// StockMovement is one append-only entry in the quantity ledger. Replaying the
// movements for a resource from the latest snapshot reproduces the live
// StockLevel row exactly.
type StockMovement struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ResourceID    uuid.UUID               `gorm:"column:resource_id;type:uuid;not null;index"`
	ReservationID *uuid.UUID              `gorm:"column:reservation_id;type:uuid;index"`
	HolderID      *uuid.UUID              `gorm:"column:holder_id;type:uuid;index"`
	MovementType  enums.StockMovementType `gorm:"column:movement_type;type:text;not null"`
	Quantity      decimal.Decimal         `gorm:"column:quantity;type:numeric;not null"`

	// Snapshot movements carry the running totals at their position in the
	// ledger so earlier entries can be truncated by compaction.
	CurrentAfter  *decimal.Decimal `gorm:"column:current_after;type:numeric"`
	ReservedAfter *decimal.Decimal `gorm:"column:reserved_after;type:numeric"`

	Metadata  json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
