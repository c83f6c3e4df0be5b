package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aquatrade/aquatrade-backend/api/middleware"
	"github.com/aquatrade/aquatrade-backend/api/responses"
	"github.com/aquatrade/aquatrade-backend/api/validators"
	"github.com/aquatrade/aquatrade-backend/internal/withdrawals"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
)

type withdrawRequestPayload struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	BankAccount string          `json:"bank_account" validate:"required"`
}

// withdrawOwnerType maps the actor role to the wallet it may draw from.
func withdrawOwnerType(role string) (enums.WalletOwnerType, error) {
	switch role {
	case string(enums.ActorRoleProducer):
		return enums.WalletOwnerProducer, nil
	case string(enums.ActorRoleHauler):
		return enums.WalletOwnerHauler, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeForbidden, "role cannot withdraw")
}

// WithdrawCreate files a withdraw request and holds the amount immediately.
func WithdrawCreate(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		ownerType, err := withdrawOwnerType(middleware.RoleFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ownerID := middleware.PartyIDFromContext(ctx)
		if ownerID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "wallet owner context missing"))
			return
		}

		var payload withdrawRequestPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		request, err := svc.Request(ctx, withdrawals.RequestInput{
			OwnerType:   ownerType,
			OwnerID:     ownerID,
			Amount:      payload.Amount,
			BankAccount: payload.BankAccount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// WithdrawDetail returns one withdraw request.
func WithdrawDetail(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request id"))
			return
		}

		request, err := svc.Get(ctx, requestID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// WithdrawApprove finalizes a pending request. The held amount stays debited.
func WithdrawApprove(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request id"))
			return
		}

		request, err := svc.Approve(ctx, requestID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// WithdrawReject refuses a pending request and returns the held amount.
func WithdrawReject(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request id"))
			return
		}

		request, err := svc.Reject(ctx, requestID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// WithdrawList lists a wallet's withdraw requests.
func WithdrawList(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		walletID, err := uuid.Parse(chi.URLParam(r, "walletId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet id"))
			return
		}

		list, err := svc.ListByWallet(ctx, walletID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
