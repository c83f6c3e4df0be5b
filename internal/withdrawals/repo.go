package withdrawals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/db"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// Repository persists withdraw requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.WithdrawRequest) error
	Find(ctx context.Context, requestID uuid.UUID) (*models.WithdrawRequest, error)
	FindForUpdate(ctx context.Context, requestID uuid.UUID) (*models.WithdrawRequest, error)
	MarkProcessed(ctx context.Context, requestID uuid.UUID, to enums.WithdrawStatus, at time.Time) (bool, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]models.WithdrawRequest, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.WithdrawRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) Find(ctx context.Context, requestID uuid.UUID) (*models.WithdrawRequest, error) {
	var request models.WithdrawRequest
	err := r.db.WithContext(ctx).First(&request, "id = ?", requestID).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindForUpdate(ctx context.Context, requestID uuid.UUID) (*models.WithdrawRequest, error) {
	var request models.WithdrawRequest
	err := db.LockForUpdate(r.db.WithContext(ctx)).
		First(&request, "id = ?", requestID).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// MarkProcessed moves a PENDING request to a terminal status. The status
// guard makes concurrent processors lose cleanly.
func (r *repository) MarkProcessed(ctx context.Context, requestID uuid.UUID, to enums.WithdrawStatus, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.WithdrawRequest{}).
		Where("id = ? AND status = ?", requestID, enums.WithdrawStatusPending).
		Updates(map[string]any{
			"status":       to,
			"processed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]models.WithdrawRequest, error) {
	var requests []models.WithdrawRequest
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("requested_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
