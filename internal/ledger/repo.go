package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/db"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// Repository manages persistence for wallets and ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetWalletForUpdate(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error)
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	FindWallet(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error)
	FindWalletByID(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	UpdateWalletBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	FindEntryByReference(ctx context.Context, reference string) (*models.LedgerEntry, error)
	ListEntriesByWallet(ctx context.Context, walletID uuid.UUID) ([]models.LedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetWalletForUpdate(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := db.LockForUpdate(r.db.WithContext(ctx)).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) FindWallet(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) FindWalletByID(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("id = ?", walletID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) UpdateWalletBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("balance", balance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindEntryByReference(ctx context.Context, reference string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListEntriesByWallet(ctx context.Context, walletID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
