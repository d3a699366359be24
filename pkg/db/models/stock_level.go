package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLevel is the single materialized row per quantity resource: the running
// totals over the stock movement ledger. 0 <= reserved_stock <= current_stock
// holds at every committed state.
type StockLevel struct {
	ResourceID    uuid.UUID       `gorm:"column:resource_id;type:uuid;primaryKey"`
	CurrentStock  decimal.Decimal `gorm:"column:current_stock;type:numeric;not null"`
	ReservedStock decimal.Decimal `gorm:"column:reserved_stock;type:numeric;not null"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Available returns current minus reserved stock.
func (s *StockLevel) Available() decimal.Decimal {
	return s.CurrentStock.Sub(s.ReservedStock)
}
