package enums

import "fmt"

// ResourceKind identifies what kind of bookable thing a resource is.
type ResourceKind string

const (
	ResourceKindRoom          ResourceKind = "room"
	ResourceKindTable         ResourceKind = "table"
	ResourceKindServiceSlot   ResourceKind = "service_slot"
	ResourceKindInventoryItem ResourceKind = "inventory_item"
)

var validResourceKinds = []ResourceKind{
	ResourceKindRoom,
	ResourceKindTable,
	ResourceKindServiceSlot,
	ResourceKindInventoryItem,
}

// String implements fmt.Stringer.
func (r ResourceKind) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ResourceKind.
func (r ResourceKind) IsValid() bool {
	for _, candidate := range validResourceKinds {
		if candidate == r {
			return true
		}
	}
	return false
}

// Granularity returns the time granularity bookings of this kind use.
func (r ResourceKind) Granularity() TimeGranularity {
	switch r {
	case ResourceKindRoom:
		return GranularityNightly
	case ResourceKindTable, ResourceKindServiceSlot:
		return GranularitySlotted
	case ResourceKindInventoryItem:
		return GranularityContinuous
	}
	return GranularitySlotted
}

// ParseResourceKind converts raw input into a ResourceKind.
func ParseResourceKind(value string) (ResourceKind, error) {
	for _, candidate := range validResourceKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resource kind %q", value)
}
