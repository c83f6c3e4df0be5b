package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/internal/ledger"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RequestInput describes one payout request for a party's wallet.
type RequestInput struct {
	OwnerType   enums.WalletOwnerType
	OwnerID     uuid.UUID
	Amount      decimal.Decimal
	BankAccount string
}

// Service runs the withdraw workflow: the balance is debited up front when
// the request is filed, and a rejected request gets the money back through a
// compensating credit.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.WithdrawRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID) (*models.WithdrawRequest, error)
	Reject(ctx context.Context, requestID uuid.UUID) (*models.WithdrawRequest, error)
	Get(ctx context.Context, requestID uuid.UUID) (*models.WithdrawRequest, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]models.WithdrawRequest, error)
}

type service struct {
	repo   Repository
	ledger ledger.Service
	tx     txRunner
	logg   *logger.Logger
}

func NewService(repo Repository, ledgerSvc ledger.Service, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, ledger: ledgerSvc, tx: tx, logg: logg}, nil
}

// Request debits the wallet and files the PENDING request in one
// transaction. An insufficient balance leaves nothing behind.
func (s *service) Request(ctx context.Context, input RequestInput) (*models.WithdrawRequest, error) {
	if err := s.validateRequest(input); err != nil {
		return nil, err
	}

	requestID := uuid.New()
	var request *models.WithdrawRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		entry, err := s.ledger.WithTx(tx).Debit(ctx, ledger.ApplyInput{
			OwnerType: input.OwnerType,
			OwnerID:   input.OwnerID,
			Amount:    input.Amount,
			Source:    enums.LedgerSourceWithdrawal,
			Reference: "WITHDRAW-" + requestID.String(),
		})
		if err != nil {
			return err
		}

		request = &models.WithdrawRequest{
			ID:          requestID,
			WalletID:    entry.WalletID,
			Amount:      input.Amount,
			BankAccount: input.BankAccount,
			Status:      enums.WithdrawStatusPending,
		}
		return s.repo.WithTx(tx).Create(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "withdraw_request_id", requestID.String()), "withdraw requested, balance held")
	return request, nil
}

// Approve finalizes the payout. The money already left the wallet at request
// time, so only the status flips.
func (s *service) Approve(ctx context.Context, requestID uuid.UUID) (*models.WithdrawRequest, error) {
	return s.process(ctx, requestID, enums.WithdrawStatusApproved)
}

// Reject returns the held amount to the wallet with a compensating credit.
func (s *service) Reject(ctx context.Context, requestID uuid.UUID) (*models.WithdrawRequest, error) {
	return s.process(ctx, requestID, enums.WithdrawStatusRejected)
}

func (s *service) process(ctx context.Context, requestID uuid.UUID, to enums.WithdrawStatus) (*models.WithdrawRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}

	var out *models.WithdrawRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := repo.FindForUpdate(ctx, requestID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "withdraw request not found")
		}
		if err != nil {
			return err
		}

		if request.Status == to {
			out = request
			return nil
		}
		if request.Status != enums.WithdrawStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdraw request already processed").
				WithDetails(map[string]any{"status": request.Status})
		}

		now := time.Now()
		changed, err := repo.MarkProcessed(ctx, request.ID, to, now)
		if err != nil {
			return err
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdraw request changed state concurrently")
		}

		if to == enums.WithdrawStatusRejected {
			wallet, err := s.ledger.WithTx(tx).FindWalletByID(ctx, request.WalletID)
			if err != nil {
				return err
			}
			if _, err := s.ledger.WithTx(tx).Credit(ctx, ledger.ApplyInput{
				OwnerType: wallet.OwnerType,
				OwnerID:   wallet.OwnerID,
				Amount:    request.Amount,
				Source:    enums.LedgerSourceRefund,
				Reference: "REFUND-" + request.ID.String(),
			}); err != nil {
				return fmt.Errorf("reverse withdraw hold: %w", err)
			}
		}

		request.Status = to
		request.ProcessedAt = &now
		out = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "withdraw_request_id", requestID.String()), "withdraw request "+string(to))
	return out, nil
}

func (s *service) Get(ctx context.Context, requestID uuid.UUID) (*models.WithdrawRequest, error) {
	request, err := s.repo.Find(ctx, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdraw request not found")
	}
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]models.WithdrawRequest, error) {
	if walletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id is required")
	}
	return s.repo.ListByWallet(ctx, walletID)
}

func (s *service) validateRequest(input RequestInput) error {
	if !input.OwnerType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet owner type")
	}
	if input.OwnerType == enums.WalletOwnerPlatform {
		return pkgerrors.New(pkgerrors.CodeForbidden, "platform wallet cannot withdraw")
	}
	if input.OwnerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.BankAccount == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "bank account is required")
	}
	return nil
}
