package enums

import "fmt"

// CapacityModel describes how a resource's capacity is consumed.
type CapacityModel string

const (
	// CapacityModelExclusive allows one occupant per instant; overlap checks
	// are interval based, never counter based.
	CapacityModelExclusive CapacityModel = "exclusive"
	// CapacityModelConcurrent allows up to N concurrent occupants.
	CapacityModelConcurrent CapacityModel = "concurrent"
	// CapacityModelQuantity models a depletable numeric stock with no time axis.
	CapacityModelQuantity CapacityModel = "quantity"
)

var validCapacityModels = []CapacityModel{
	CapacityModelExclusive,
	CapacityModelConcurrent,
	CapacityModelQuantity,
}

// String implements fmt.Stringer.
func (c CapacityModel) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CapacityModel.
func (c CapacityModel) IsValid() bool {
	for _, candidate := range validCapacityModels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCapacityModel converts raw input into a CapacityModel.
func ParseCapacityModel(value string) (CapacityModel, error) {
	for _, candidate := range validCapacityModels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid capacity model %q", value)
}
