package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/innkeeplabs/innkeep-backend/api/responses"
	"github.com/innkeeplabs/innkeep-backend/api/validators"
	"github.com/innkeeplabs/innkeep-backend/internal/catalog"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
	pkgerrors "github.com/innkeeplabs/innkeep-backend/pkg/errors"
	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
	"github.com/innkeeplabs/innkeep-backend/pkg/pagination"
)

// ResourceCreate registers a new bookable resource for a property.
func ResourceCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createResourceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.CreateResource(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func ResourceGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		resourceID, err := pathUUID(r, "resourceId", "resource id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetResource(r.Context(), resourceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// ResourceUpdateCapacity changes a resource's capacity ceiling. Existing
// reservations keep their load; the next availability read reflects the new cap.
func ResourceUpdateCapacity(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		resourceID, err := pathUUID(r, "resourceId", "resource id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCapacityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.UpdateCapacity(r.Context(), resourceID, payload.Capacity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

func ResourceRetire(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		resourceID, err := pathUUID(r, "resourceId", "resource id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RetireResource(r.Context(), resourceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

func ResourceList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		propertyID, err := validators.ParseQueryUUID(r, "property_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := catalog.ResourceListFilters{
			IncludeRetired: strings.EqualFold(r.URL.Query().Get("include_retired"), "true"),
			Tag:            strings.TrimSpace(r.URL.Query().Get("tag")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			kind, parseErr := enums.ParseResourceKind(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid kind"))
				return
			}
			filters.Kind = &kind
		}

		result, err := svc.ListResources(r.Context(), catalog.ListResourcesInput{
			PropertyID: propertyID,
			Filters:    filters,
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type createResourceRequest struct {
	PropertyID    uuid.UUID `json:"property_id" validate:"required"`
	Kind          string    `json:"kind" validate:"required"`
	CapacityModel string    `json:"capacity_model" validate:"required"`
	Name          string    `json:"name" validate:"required"`
	Capacity      int       `json:"capacity" validate:"required,min=1"`
	Tags          []string  `json:"tags"`
}

type updateCapacityRequest struct {
	Capacity int `json:"capacity" validate:"required,min=1"`
}

func (r createResourceRequest) toInput() (catalog.CreateResourceInput, error) {
	kind, err := enums.ParseResourceKind(r.Kind)
	if err != nil {
		return catalog.CreateResourceInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind")
	}
	model, err := enums.ParseCapacityModel(r.CapacityModel)
	if err != nil {
		return catalog.CreateResourceInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid capacity model")
	}
	return catalog.CreateResourceInput{
		PropertyID:    r.PropertyID,
		Kind:          kind,
		CapacityModel: model,
		Name:          r.Name,
		Capacity:      r.Capacity,
		Tags:          r.Tags,
	}, nil
}
