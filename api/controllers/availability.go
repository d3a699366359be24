package controllers

import (
	"net/http"
	"strings"

	"github.com/innkeeplabs/innkeep-backend/api/responses"
	"github.com/innkeeplabs/innkeep-backend/api/validators"
	"github.com/innkeeplabs/innkeep-backend/internal/availability"
	"github.com/innkeeplabs/innkeep-backend/internal/reservation"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
	pkgerrors "github.com/innkeeplabs/innkeep-backend/pkg/errors"
	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
)

// AvailabilityCheck answers whether a window has free capacity, bucket by bucket.
func AvailabilityCheck(svc *availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "availability service unavailable"))
			return
		}

		resourceID, err := pathUUID(r, "resourceId", "resource id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		window, err := windowFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckWindow(r.Context(), resourceID, window)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AvailabilitySearch lists a property's resources that can absorb the
// requested amount over the whole window.
func AvailabilitySearch(svc *availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "availability service unavailable"))
			return
		}

		propertyID, err := validators.ParseQueryUUID(r, "property_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		window, err := windowFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := validators.ParseQueryInt(r, "amount", 1, 1, 1000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var kind *enums.ResourceKind
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			parsed, parseErr := enums.ParseResourceKind(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid kind"))
				return
			}
			kind = &parsed
		}

		results, err := svc.ListAvailable(r.Context(), propertyID, window, amount, kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"resources": results})
	}
}

// StockQuery reads the live stock level for a quantity resource.
func StockQuery(svc *availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "availability service unavailable"))
			return
		}

		resourceID, err := pathUUID(r, "resourceId", "resource id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Stock(r.Context(), resourceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func windowFromQuery(r *http.Request) (reservation.Window, error) {
	start, err := validators.ParseQueryTime(r, "start")
	if err != nil {
		return reservation.Window{}, err
	}
	end, err := validators.ParseQueryTime(r, "end")
	if err != nil {
		return reservation.Window{}, err
	}
	return reservation.Window{Start: start, End: end}, nil
}
