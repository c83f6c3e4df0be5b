package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
)

// Repository persists the raw audit trail of gateway events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLog(ctx context.Context, log *models.PaymentLog) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentLog, error)
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

func (r *repository) CreateLog(ctx context.Context, log *models.PaymentLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentLog, error) {
	var logs []models.PaymentLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
