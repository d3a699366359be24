package enums

import "fmt"

// ReservationMode selects how a reserve call commits.
type ReservationMode string

const (
	// ModeCommit confirms the reservation in the same transaction that validates capacity.
	ModeCommit ReservationMode = "commit"
	// ModeHold creates a pending reservation with a TTL that must be confirmed
	// before it expires.
	ModeHold ReservationMode = "hold"
)

var validReservationModes = []ReservationMode{ModeCommit, ModeHold}

// String implements fmt.Stringer.
func (m ReservationMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ReservationMode.
func (m ReservationMode) IsValid() bool {
	for _, candidate := range validReservationModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseReservationMode converts raw input into a ReservationMode.
func ParseReservationMode(value string) (ReservationMode, error) {
	for _, candidate := range validReservationModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation mode %q", value)
}
