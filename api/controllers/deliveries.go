package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aquatrade/aquatrade-backend/api/middleware"
	"github.com/aquatrade/aquatrade-backend/api/responses"
	"github.com/aquatrade/aquatrade-backend/api/validators"
	"github.com/aquatrade/aquatrade-backend/internal/deliveries"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
)

type scanPayload struct {
	Token string `json:"token" validate:"required"`
}

// DeliveryDetail returns one delivery by id.
func DeliveryDetail(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		deliveryID, err := uuid.Parse(chi.URLParam(r, "deliveryId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery id"))
			return
		}

		delivery, err := svc.Get(ctx, deliveryID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

// DeliveryByOrder returns the delivery minted for an order.
func DeliveryByOrder(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		delivery, err := svc.GetByOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

// HaulerDeliveries lists the deliveries assigned to the calling hauler.
func HaulerDeliveries(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		haulerID := middleware.PartyIDFromContext(ctx)
		if haulerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "hauler context missing"))
			return
		}

		list, err := svc.ListByHauler(ctx, haulerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// DeliveryAssign claims a pending delivery for the calling hauler.
func DeliveryAssign(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		deliveryID, err := uuid.Parse(chi.URLParam(r, "deliveryId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery id"))
			return
		}

		haulerID := middleware.PartyIDFromContext(ctx)
		if haulerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "hauler context missing"))
			return
		}

		if err := svc.Assign(ctx, deliveryID, haulerID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "assigned"})
	}
}

// DeliveryScanPickup consumes a pickup token. The order ships on success.
func DeliveryScanPickup(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		var payload scanPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		delivery, err := svc.ScanPickup(ctx, payload.Token, middleware.PartyIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

// DeliveryScanReceive consumes a delivery token. The order completes and the
// escrow settles on success.
func DeliveryScanReceive(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		var payload scanPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		delivery, err := svc.ScanReceive(ctx, payload.Token, middleware.PartyIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

// DeliveryQR returns both scan payloads for a delivery so a client can render
// the pickup and receive codes.
func DeliveryQR(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		deliveryID, err := uuid.Parse(chi.URLParam(r, "deliveryId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery id"))
			return
		}

		delivery, err := svc.Get(ctx, deliveryID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pickup, receive := svc.QRPayloads(delivery)
		responses.WriteSuccess(w, map[string]deliveries.QRPayload{
			"pickup":  pickup,
			"receive": receive,
		})
	}
}
