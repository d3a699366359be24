package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvailabilitySlot is the materialized committed load for one resource and one
// time bucket (a night for rooms, an explicit slot for tables and services).
// It is a projection of the reservation ledger and is advisory: commit
// decisions always re-derive load from the ledger inside the locked path.
type AvailabilitySlot struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ResourceID      uuid.UUID `gorm:"column:resource_id;type:uuid;not null;uniqueIndex:ux_slots_resource_bucket"`
	BucketStart     time.Time `gorm:"column:bucket_start;not null;uniqueIndex:ux_slots_resource_bucket"`
	BucketEnd       time.Time `gorm:"column:bucket_end;not null"`
	Capacity        int       `gorm:"column:capacity;not null"`
	CommittedAmount int       `gorm:"column:committed_amount;not null;default:0"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *AvailabilitySlot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Free returns the remaining capacity in this bucket, never negative.
func (s *AvailabilitySlot) Free() int {
	free := s.Capacity - s.CommittedAmount
	if free < 0 {
		return 0
	}
	return free
}
