package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/innkeeplabs/innkeep-backend/api/responses"
	"github.com/innkeeplabs/innkeep-backend/api/validators"
	"github.com/innkeeplabs/innkeep-backend/internal/inventory"
	pkgerrors "github.com/innkeeplabs/innkeep-backend/pkg/errors"
	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
)

// StockInitialLoad seeds the opening balance for a quantity resource.
func StockInitialLoad(svc *inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return stockMutation(svc, logg, func(r *http.Request, resourceID uuid.UUID, qty decimal.Decimal) (*inventory.StockDTO, error) {
		return svc.InitialLoad(r.Context(), resourceID, qty)
	})
}

// StockAdjust applies a signed correction to the current balance.
func StockAdjust(svc *inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return stockMutation(svc, logg, func(r *http.Request, resourceID uuid.UUID, qty decimal.Decimal) (*inventory.StockDTO, error) {
		return svc.Adjust(r.Context(), resourceID, qty)
	})
}

// StockWaste writes off unreserved stock.
func StockWaste(svc *inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return stockMutation(svc, logg, func(r *http.Request, resourceID uuid.UUID, qty decimal.Decimal) (*inventory.StockDTO, error) {
		return svc.Waste(r.Context(), resourceID, qty)
	})
}

// StockConsume burns reserved stock, optionally against a reservation.
func StockConsume(svc *inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		resourceID, err := pathUUID(r, "resourceId", "resource id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload consumeStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qty, err := decimal.NewFromString(payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quantity"))
			return
		}

		record, err := svc.Consume(r.Context(), resourceID, payload.ReservationID, qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

type stockMutationRequest struct {
	Quantity string `json:"quantity" validate:"required"`
}

type consumeStockRequest struct {
	Quantity      string     `json:"quantity" validate:"required"`
	ReservationID *uuid.UUID `json:"reservation_id"`
}

func stockMutation(
	svc *inventory.Service,
	logg *logger.Logger,
	apply func(*http.Request, uuid.UUID, decimal.Decimal) (*inventory.StockDTO, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		resourceID, err := pathUUID(r, "resourceId", "resource id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stockMutationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qty, err := decimal.NewFromString(payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quantity"))
			return
		}

		record, err := apply(r, resourceID, qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}
