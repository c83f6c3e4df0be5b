package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aquatrade/aquatrade-backend/api/middleware"
	"github.com/aquatrade/aquatrade-backend/api/responses"
	"github.com/aquatrade/aquatrade-backend/api/validators"
	"github.com/aquatrade/aquatrade-backend/internal/orders"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/geo"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
	"github.com/aquatrade/aquatrade-backend/pkg/pagination"
)

type createOrderPayload struct {
	Items           []orders.ItemInput `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress string             `json:"delivery_address" validate:"required"`
	DeliveryNote    *string            `json:"delivery_note,omitempty"`
	Insured         bool               `json:"insured"`
	DistanceKm      *float64           `json:"distance_km,omitempty" validate:"omitempty,gt=0"`
	Origin          *geo.Point         `json:"origin,omitempty"`
	Destination     *geo.Point         `json:"destination,omitempty"`
}

// OrderCreate places an order for the buyer carried by the access token.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID := middleware.PartyIDFromContext(ctx)
		if buyerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "buyer context missing"))
			return
		}

		var payload createOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Create(ctx, orders.CreateOrderInput{
			BuyerID:         buyerID,
			Items:           payload.Items,
			DeliveryAddress: payload.DeliveryAddress,
			DeliveryNote:    payload.DeliveryNote,
			Insured:         payload.Insured,
			DistanceKm:      payload.DistanceKm,
			Origin:          payload.Origin,
			Destination:     payload.Destination,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderDetail returns one order. Buyers only see their own orders.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.Get(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if partyID := middleware.PartyIDFromContext(ctx); partyID != uuid.Nil && order.BuyerID != partyID && middleware.RoleFromContext(ctx) != "admin" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer"))
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderList returns the buyer's orders newest first with cursor pagination.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID := middleware.PartyIDFromContext(ctx)
		if buyerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "buyer context missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListByBuyer(ctx, buyerID, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// OrderCancel cancels a pending order on the buyer's behalf.
func OrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		actorID := middleware.PartyIDFromContext(ctx)
		if actorID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "buyer context missing"))
			return
		}

		if err := svc.Cancel(ctx, orders.CancelOrderInput{OrderID: orderID, ActorID: actorID}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}
