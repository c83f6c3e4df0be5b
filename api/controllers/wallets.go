package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aquatrade/aquatrade-backend/api/middleware"
	"github.com/aquatrade/aquatrade-backend/api/responses"
	"github.com/aquatrade/aquatrade-backend/internal/ledger"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
)

func walletOwnerFromRequest(r *http.Request) (enums.WalletOwnerType, uuid.UUID, error) {
	ownerType, err := enums.ParseWalletOwnerType(strings.TrimSpace(r.URL.Query().Get("owner_type")))
	if err != nil {
		return "", uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner type")
	}

	ownerID := middleware.PartyIDFromContext(r.Context())
	if raw := strings.TrimSpace(r.URL.Query().Get("owner_id")); raw != "" {
		if middleware.RoleFromContext(r.Context()) != "admin" {
			return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "owner_id requires admin")
		}
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return "", uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner id")
		}
		ownerID = parsed
	}

	if ownerType != enums.WalletOwnerPlatform && ownerID == uuid.Nil {
		return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "wallet owner context missing")
	}
	return ownerType, ownerID, nil
}

// WalletBalance returns the ledger-backed balance for a wallet owner.
func WalletBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		ownerType, ownerID, err := walletOwnerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.Balance(ctx, ownerType, ownerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"owner_type": ownerType,
			"owner_id":   ownerID,
			"balance":    balance,
		})
	}
}

// WalletEntries lists the ledger entries recorded against a wallet.
func WalletEntries(svc ledger.Service, repo ledger.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || repo == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		ownerType, ownerID, err := walletOwnerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wallet, err := svc.FindWallet(ctx, ownerType, ownerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		entries, err := repo.ListEntriesByWallet(ctx, wallet.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"wallet":  wallet,
			"entries": entries,
		})
	}
}

// WalletVerify re-derives a wallet's balance from its entries and reports
// whether the stored balance matches.
func WalletVerify(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		walletID, err := uuid.Parse(chi.URLParam(r, "walletId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet id"))
			return
		}

		audit, err := svc.VerifyWallet(ctx, walletID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, audit)
	}
}
