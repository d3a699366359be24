package enums

import "fmt"

// StockMovementType labels each entry in the quantity ledger.
type StockMovementType string

const (
	MovementInitialLoad StockMovementType = "initial_load"
	MovementReserve     StockMovementType = "reserve"
	MovementRelease     StockMovementType = "release"
	MovementConsume     StockMovementType = "consume"
	MovementWaste       StockMovementType = "waste"
	MovementAdjustment  StockMovementType = "adjustment"
	// MovementSnapshot is written by the compaction job; it carries the running
	// totals at that point so older entries can be truncated.
	MovementSnapshot StockMovementType = "snapshot"
)

var validStockMovementTypes = []StockMovementType{
	MovementInitialLoad,
	MovementReserve,
	MovementRelease,
	MovementConsume,
	MovementWaste,
	MovementAdjustment,
	MovementSnapshot,
}

// String implements fmt.Stringer.
func (m StockMovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known StockMovementType.
func (m StockMovementType) IsValid() bool {
	for _, candidate := range validStockMovementTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseStockMovementType converts raw input into a StockMovementType.
func ParseStockMovementType(value string) (StockMovementType, error) {
	for _, candidate := range validStockMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement type %q", value)
}
