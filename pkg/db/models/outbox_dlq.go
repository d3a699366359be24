package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxDLQ stores outbox events that exhausted their publish attempts.
type OutboxDLQ struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OutboxEventID uuid.UUID       `gorm:"column:outbox_event_id;type:uuid;not null;index"`
	EventType     string          `gorm:"column:event_type;not null"`
	AggregateID   uuid.UUID       `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	LastError     string          `gorm:"column:last_error;not null"`
	Attempts      int             `gorm:"column:attempts;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (d *OutboxDLQ) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
