package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/innkeeplabs/innkeep-backend/api/middleware"
	"github.com/innkeeplabs/innkeep-backend/api/responses"
	"github.com/innkeeplabs/innkeep-backend/api/validators"
	"github.com/innkeeplabs/innkeep-backend/internal/reservation"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
	pkgerrors "github.com/innkeeplabs/innkeep-backend/pkg/errors"
	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
)

// ReservationCreate attempts to reserve capacity for the authenticated holder.
func ReservationCreate(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		holderID, err := holderFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createReservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(holderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Reserve(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func ReservationGet(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		reservationID, err := pathUUID(r, "reservationId", "reservation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), reservationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// ReservationConfirm promotes a pending hold into a confirmed booking.
func ReservationConfirm(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		reservationID, err := pathUUID(r, "reservationId", "reservation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Confirm(r.Context(), reservationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

func ReservationCancel(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		reservationID, err := pathUUID(r, "reservationId", "reservation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Cancel(r.Context(), reservationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// ReservationRelease gives back some or all of a confirmed reservation's load.
func ReservationRelease(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		reservationID, err := pathUUID(r, "reservationId", "reservation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload releaseReservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Release(r.Context(), reservationID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

type createReservationRequest struct {
	ResourceID  uuid.UUID           `json:"resource_id" validate:"required"`
	Window      *reservation.Window `json:"window"`
	Amount      int                 `json:"amount" validate:"min=0"`
	Quantity    *string             `json:"quantity"`
	Mode        string              `json:"mode" validate:"required,oneof=hold commit"`
	HoldTTLSecs int                 `json:"hold_ttl_seconds" validate:"min=0"`
}

type releaseReservationRequest struct {
	Amount   *int    `json:"amount"`
	Quantity *string `json:"quantity"`
}

func (r createReservationRequest) toInput(holderID uuid.UUID) (reservation.ReserveInput, error) {
	mode, err := enums.ParseReservationMode(r.Mode)
	if err != nil {
		return reservation.ReserveInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode")
	}

	input := reservation.ReserveInput{
		ResourceID: r.ResourceID,
		HolderID:   holderID,
		Window:     r.Window,
		Amount:     r.Amount,
		Mode:       mode,
		HoldTTL:    time.Duration(r.HoldTTLSecs) * time.Second,
	}

	if r.Quantity != nil {
		qty, parseErr := decimal.NewFromString(*r.Quantity)
		if parseErr != nil {
			return reservation.ReserveInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid quantity")
		}
		input.Quantity = &qty
	}

	return input, nil
}

func (r releaseReservationRequest) toInput() (reservation.ReleaseInput, error) {
	input := reservation.ReleaseInput{Amount: r.Amount}
	if r.Quantity != nil {
		qty, err := decimal.NewFromString(*r.Quantity)
		if err != nil {
			return reservation.ReleaseInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quantity")
		}
		input.Quantity = &qty
	}
	return input, nil
}

func holderFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.HolderIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "holder context missing")
	}
	holderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid holder id")
	}
	return holderID, nil
}
