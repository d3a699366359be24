package reservation

import (
	"fmt"
	"time"

	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
	pkgerrors "github.com/innkeeplabs/innkeep-backend/pkg/errors"
)

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Nights returns the count of nights covered by a nightly window.
func (w Window) Nights() int {
	return int(w.End.Sub(w.Start) / (24 * time.Hour))
}

// Buckets splits the window into the per-bucket sub-windows the availability
// index materializes: one per night for nightly resources, the whole window
// for slotted ones.
func (w Window) Buckets(granularity enums.TimeGranularity) []Window {
	if granularity != enums.GranularityNightly {
		return []Window{w}
	}
	buckets := make([]Window, 0, w.Nights())
	for night := w.Start; night.Before(w.End); night = night.AddDate(0, 0, 1) {
		buckets = append(buckets, Window{Start: night, End: night.AddDate(0, 0, 1)})
	}
	return buckets
}

// NormalizeWindow validates the window against the resource granularity and
// returns it in UTC. Nightly windows must be midnight-aligned dates.
func NormalizeWindow(window *Window, granularity enums.TimeGranularity, maxStayNights int) (*Window, error) {
	if granularity == enums.GranularityContinuous {
		if window != nil {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidWindow, "quantity resources take no time window")
		}
		return nil, nil
	}

	if window == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidWindow, "time window is required")
	}

	normalized := Window{Start: window.Start.UTC(), End: window.End.UTC()}
	if !normalized.Start.Before(normalized.End) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidWindow, "window end must be after start")
	}

	if granularity == enums.GranularityNightly {
		if !midnightAligned(normalized.Start) || !midnightAligned(normalized.End) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidWindow, "nightly windows use date-aligned bounds")
		}
		nights := normalized.Nights()
		if nights < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidWindow, "stay covers no nights")
		}
		if maxStayNights > 0 && nights > maxStayNights {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidWindow,
				fmt.Sprintf("stay exceeds %d nights", maxStayNights))
		}
	}

	return &normalized, nil
}

func midnightAligned(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
