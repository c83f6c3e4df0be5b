package deliveries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/db"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// Repository defines persistence operations for deliveries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, delivery *models.Delivery) error
	Find(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error)
	FindByPickupTokenForUpdate(ctx context.Context, token string) (*models.Delivery, error)
	FindByDeliveryTokenForUpdate(ctx context.Context, token string) (*models.Delivery, error)
	Assign(ctx context.Context, deliveryID, haulerID uuid.UUID) (bool, error)
	MarkPickedUp(ctx context.Context, deliveryID uuid.UUID, from enums.DeliveryStatus, at time.Time) (bool, error)
	MarkDelivered(ctx context.Context, deliveryID uuid.UUID, at time.Time) (bool, error)
	ListByHauler(ctx context.Context, haulerID uuid.UUID) ([]models.Delivery, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a deliveries repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repository) Find(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.db.WithContext(ctx).
		Where("id = ?", deliveryID).
		First(&delivery).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&delivery).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) FindByPickupTokenForUpdate(ctx context.Context, token string) (*models.Delivery, error) {
	return r.findByTokenForUpdate(ctx, "pickup_token", token)
}

func (r *repository) FindByDeliveryTokenForUpdate(ctx context.Context, token string) (*models.Delivery, error) {
	return r.findByTokenForUpdate(ctx, "delivery_token", token)
}

func (r *repository) findByTokenForUpdate(ctx context.Context, column, token string) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := db.LockForUpdate(r.db.WithContext(ctx)).
		Where(column+" = ?", token).
		First(&delivery).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) Assign(ctx context.Context, deliveryID, haulerID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND status = ? AND hauler_id IS NULL", deliveryID, enums.DeliveryStatusPending).
		Updates(map[string]any{
			"hauler_id": haulerID,
			"status":    enums.DeliveryStatusAssigned,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) MarkPickedUp(ctx context.Context, deliveryID uuid.UUID, from enums.DeliveryStatus, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND status = ?", deliveryID, from).
		Updates(map[string]any{
			"status":       enums.DeliveryStatusPickedUp,
			"picked_up_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) MarkDelivered(ctx context.Context, deliveryID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND status = ?", deliveryID, enums.DeliveryStatusPickedUp).
		Updates(map[string]any{
			"status":       enums.DeliveryStatusDelivered,
			"delivered_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListByHauler(ctx context.Context, haulerID uuid.UUID) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	if err := r.db.WithContext(ctx).
		Where("hauler_id = ?", haulerID).
		Order("created_at DESC").
		Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}
