package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/db"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
)

// Service applies money movements to wallets. Every movement carries a unique
// reference; re-applying a reference returns the original entry unchanged.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Credit(ctx context.Context, input ApplyInput) (*models.LedgerEntry, error)
	Debit(ctx context.Context, input ApplyInput) (*models.LedgerEntry, error)
	Balance(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (decimal.Decimal, error)
	FindWallet(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error)
	FindWalletByID(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	VerifyWallet(ctx context.Context, walletID uuid.UUID) (*WalletAudit, error)
}

// ApplyInput captures one wallet movement.
type ApplyInput struct {
	OwnerType enums.WalletOwnerType
	OwnerID   uuid.UUID
	Amount    decimal.Decimal
	Source    enums.LedgerSource
	Reference string
}

// WalletAudit reports a replayed-balance check for one wallet.
type WalletAudit struct {
	WalletID      uuid.UUID       `json:"wallet_id"`
	Balance       decimal.Decimal `json:"balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	EntryCount    int             `json:"entry_count"`
	Consistent    bool            `json:"consistent"`
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Credit(ctx context.Context, input ApplyInput) (*models.LedgerEntry, error) {
	return s.apply(ctx, enums.LedgerDirectionCredit, input)
}

func (s *service) Debit(ctx context.Context, input ApplyInput) (*models.LedgerEntry, error) {
	return s.apply(ctx, enums.LedgerDirectionDebit, input)
}

func (s *service) apply(ctx context.Context, direction enums.LedgerDirection, input ApplyInput) (*models.LedgerEntry, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	wallet, err := s.lockOrCreateWallet(ctx, input.OwnerType, input.OwnerID)
	if err != nil {
		return nil, err
	}

	// Replay guard: a reference that already landed is a no-op. Checked under
	// the wallet lock so concurrent applies of the same reference serialize;
	// the loser sees the winner's entry here instead of tripping the unique
	// index after it has already moved the balance.
	if existing, err := s.repo.FindEntryByReference(ctx, input.Reference); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	var newBalance decimal.Decimal
	switch direction {
	case enums.LedgerDirectionCredit:
		newBalance = wallet.Balance.Add(input.Amount)
	case enums.LedgerDirectionDebit:
		if wallet.Balance.LessThan(input.Amount) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance too low").
				WithDetails(map[string]any{
					"wallet_id": wallet.ID,
					"available": wallet.Balance.String(),
					"requested": input.Amount.String(),
				})
		}
		newBalance = wallet.Balance.Sub(input.Amount)
	default:
		return nil, fmt.Errorf("invalid ledger direction %q", direction)
	}

	if err := s.repo.UpdateWalletBalance(ctx, wallet.ID, newBalance); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		WalletID:  wallet.ID,
		Direction: direction,
		Amount:    input.Amount,
		Source:    input.Source,
		Reference: input.Reference,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) lockOrCreateWallet(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.GetWalletForUpdate(ctx, ownerType, ownerID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &models.Wallet{
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
	}
	if createErr := s.repo.CreateWallet(ctx, fresh); createErr != nil {
		if db.IsUniqueViolation(createErr, "") {
			return s.repo.GetWalletForUpdate(ctx, ownerType, ownerID)
		}
		return nil, createErr
	}
	return fresh, nil
}

func (s *service) Balance(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (decimal.Decimal, error) {
	wallet, err := s.repo.FindWallet(ctx, ownerType, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

func (s *service) FindWallet(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.FindWallet(ctx, ownerType, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *service) FindWalletByID(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.FindWalletByID(ctx, walletID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// VerifyWallet replays a wallet's entries and compares the result against the
// stored balance.
func (s *service) VerifyWallet(ctx context.Context, walletID uuid.UUID) (*WalletAudit, error) {
	wallet, err := s.repo.FindWalletByID(ctx, walletID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListEntriesByWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	replayed := decimal.Zero
	for _, entry := range entries {
		switch entry.Direction {
		case enums.LedgerDirectionCredit:
			replayed = replayed.Add(entry.Amount)
		case enums.LedgerDirectionDebit:
			replayed = replayed.Sub(entry.Amount)
		}
	}

	return &WalletAudit{
		WalletID:      wallet.ID,
		Balance:       wallet.Balance,
		LedgerBalance: replayed,
		EntryCount:    len(entries),
		Consistent:    wallet.Balance.Equal(replayed),
	}, nil
}

func validateInput(input ApplyInput) error {
	if !input.OwnerType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wallet owner type %q", input.OwnerType))
	}
	if input.OwnerType != enums.WalletOwnerPlatform && input.OwnerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Source.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger source %q", input.Source))
	}
	if input.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	return nil
}
