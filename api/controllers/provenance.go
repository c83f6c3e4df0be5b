package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aquatrade/aquatrade-backend/api/middleware"
	"github.com/aquatrade/aquatrade-backend/api/responses"
	"github.com/aquatrade/aquatrade-backend/api/validators"
	"github.com/aquatrade/aquatrade-backend/internal/provenance"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
)

type appendBatchPayload struct {
	BatchCode        string    `json:"batch_code" validate:"required"`
	StockedDate      time.Time `json:"stocked_date" validate:"required"`
	SeedAgeDays      int       `json:"seed_age_days" validate:"gte=0"`
	SeedOrigin       string    `json:"seed_origin" validate:"required"`
	WaterPH          float64   `json:"water_ph"`
	WaterSalinity    float64   `json:"water_salinity"`
	EstimatedYieldKg int       `json:"estimated_yield_kg" validate:"gte=0"`
	Notes            *string   `json:"notes,omitempty"`
}

type recordHarvestPayload struct {
	HarvestDate time.Time `json:"harvest_date" validate:"required"`
}

type createFarmPayload struct {
	Name      string   `json:"name" validate:"required"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	AreaM2    int      `json:"area_m2" validate:"gte=0"`
}

// FarmCreate registers a production site for the producer carried by the
// access token.
func FarmCreate(svc provenance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "provenance service unavailable"))
			return
		}

		producerID := middleware.PartyIDFromContext(ctx)
		if producerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "producer context missing"))
			return
		}

		var payload createFarmPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		farm, err := svc.CreateFarm(ctx, provenance.CreateFarmInput{
			ProducerID: producerID,
			Name:       payload.Name,
			Location:   payload.Location,
			Latitude:   payload.Latitude,
			Longitude:  payload.Longitude,
			AreaM2:     payload.AreaM2,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, farm)
	}
}

// FarmList returns the calling producer's farms.
func FarmList(svc provenance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "provenance service unavailable"))
			return
		}

		producerID := middleware.PartyIDFromContext(ctx)
		if producerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "producer context missing"))
			return
		}

		list, err := svc.ListFarms(ctx, producerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// BatchAppend adds a batch to the tail of a farm's hash chain.
func BatchAppend(svc provenance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "provenance service unavailable"))
			return
		}

		farmID, err := uuid.Parse(chi.URLParam(r, "farmId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid farm id"))
			return
		}

		var payload appendBatchPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		batch, err := svc.AppendBatch(ctx, provenance.AppendInput{
			FarmID:           farmID,
			BatchCode:        payload.BatchCode,
			StockedDate:      payload.StockedDate,
			SeedAgeDays:      payload.SeedAgeDays,
			SeedOrigin:       payload.SeedOrigin,
			WaterPH:          payload.WaterPH,
			WaterSalinity:    payload.WaterSalinity,
			EstimatedYieldKg: payload.EstimatedYieldKg,
			Notes:            payload.Notes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

// BatchHarvest records the harvest date on an active batch.
func BatchHarvest(svc provenance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "provenance service unavailable"))
			return
		}

		batchID, err := uuid.Parse(chi.URLParam(r, "batchId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch id"))
			return
		}

		var payload recordHarvestPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		batch, err := svc.RecordHarvest(ctx, batchID, payload.HarvestDate)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

// BatchDetail returns one batch.
func BatchDetail(svc provenance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "provenance service unavailable"))
			return
		}

		batchID, err := uuid.Parse(chi.URLParam(r, "batchId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch id"))
			return
		}

		batch, err := svc.Get(ctx, batchID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

// BatchVerify re-derives one batch's hash from its stored fields.
func BatchVerify(svc provenance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "provenance service unavailable"))
			return
		}

		batchID, err := uuid.Parse(chi.URLParam(r, "batchId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch id"))
			return
		}

		audit, err := svc.VerifyBatch(ctx, batchID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, audit)
	}
}

// FarmChainVerify walks a farm's whole chain and reports every break.
func FarmChainVerify(svc provenance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "provenance service unavailable"))
			return
		}

		farmID, err := uuid.Parse(chi.URLParam(r, "farmId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid farm id"))
			return
		}

		report, err := svc.VerifyChain(ctx, farmID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// FarmBatches lists a farm's batches in chain order.
func FarmBatches(svc provenance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "provenance service unavailable"))
			return
		}

		farmID, err := uuid.Parse(chi.URLParam(r, "farmId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid farm id"))
			return
		}

		list, err := svc.ListByFarm(ctx, farmID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
