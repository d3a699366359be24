package enums

import "fmt"

// TimeGranularity declares how a resource's booking windows are bucketed.
type TimeGranularity string

const (
	// GranularityNightly buckets by date; the end date is the checkout date, exclusive.
	GranularityNightly TimeGranularity = "nightly"
	// GranularitySlotted buckets by explicit start/end timestamps.
	GranularitySlotted TimeGranularity = "slotted"
	// GranularityContinuous has no time axis, only quantity.
	GranularityContinuous TimeGranularity = "continuous"
)

var validTimeGranularities = []TimeGranularity{
	GranularityNightly,
	GranularitySlotted,
	GranularityContinuous,
}

// String implements fmt.Stringer.
func (g TimeGranularity) String() string {
	return string(g)
}

// IsValid reports whether the value is a known TimeGranularity.
func (g TimeGranularity) IsValid() bool {
	for _, candidate := range validTimeGranularities {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseTimeGranularity converts raw input into a TimeGranularity.
func ParseTimeGranularity(value string) (TimeGranularity, error) {
	for _, candidate := range validTimeGranularities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid time granularity %q", value)
}
