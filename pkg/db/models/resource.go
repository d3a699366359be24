package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
)

// Resource is a bookable entity: room, table, service slot definition, or
// inventory item. Capacity may only grow once referenced by a committed
// reservation.
type Resource struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	PropertyID    uuid.UUID             `gorm:"column:property_id;type:uuid;not null;index"`
	Kind          enums.ResourceKind    `gorm:"column:kind;type:text;not null"`
	CapacityModel enums.CapacityModel   `gorm:"column:capacity_model;type:text;not null"`
	Granularity   enums.TimeGranularity `gorm:"column:granularity;type:text;not null"`
	Name          string                `gorm:"column:name;not null"`
	Capacity      int                   `gorm:"column:capacity;not null;default:1"`
	Tags          []string              `gorm:"column:tags;type:text;serializer:json"`
	RetiredAt     *time.Time            `gorm:"column:retired_at"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Retired reports whether the resource no longer accepts reservations.
func (r *Resource) Retired() bool {
	return r.RetiredAt != nil
}
