package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aquatrade/aquatrade-backend/api/middleware"
	"github.com/aquatrade/aquatrade-backend/api/responses"
	"github.com/aquatrade/aquatrade-backend/api/validators"
	"github.com/aquatrade/aquatrade-backend/internal/products"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
)

type createProductPayload struct {
	BatchID    uuid.UUID       `json:"batch_id" validate:"required"`
	Species    string          `json:"species" validate:"required"`
	Grade      string          `json:"grade" validate:"required"`
	PricePerKg decimal.Decimal `json:"price_per_kg" validate:"required"`
	StockKg    int             `json:"stock_kg" validate:"gt=0"`
}

// ProductCreate lists a lot for sale under the producer carried by the
// access token.
func ProductCreate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		producerID := middleware.PartyIDFromContext(ctx)
		if producerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "producer context missing"))
			return
		}

		var payload createProductPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := svc.Create(ctx, products.CreateInput{
			ProducerID: producerID,
			BatchID:    payload.BatchID,
			Species:    payload.Species,
			Grade:      payload.Grade,
			PricePerKg: payload.PricePerKg,
			StockKg:    payload.StockKg,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ProductList returns available lots, optionally filtered by species.
func ProductList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		species := strings.TrimSpace(r.URL.Query().Get("species"))
		list, err := svc.ListAvailable(ctx, species)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ProductDetail returns one lot.
func ProductDetail(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := svc.Get(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProducerProducts returns every lot of the calling producer, archived
// included.
func ProducerProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		producerID := middleware.PartyIDFromContext(ctx)
		if producerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "producer context missing"))
			return
		}

		list, err := svc.ListByProducer(ctx, producerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ProductArchive takes the producer's lot off the market.
func ProductArchive(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		producerID := middleware.PartyIDFromContext(ctx)
		if producerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "producer context missing"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		if err := svc.Archive(ctx, productID, producerID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "archived"})
	}
}
