package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// Repository persists sellable product lots and resolves their batch lineage.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	Find(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListAvailable(ctx context.Context, species string) ([]models.Product, error)
	ListByProducer(ctx context.Context, producerID uuid.UUID) ([]models.Product, error)
	Archive(ctx context.Context, productID, producerID uuid.UUID) (bool, error)
	FindBatch(ctx context.Context, batchID uuid.UUID) (*models.Batch, error)
	FindFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error)
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

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) Find(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", productID).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListAvailable(ctx context.Context, species string) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.ProductStatusAvailable)
	if species != "" {
		query = query.Where("species = ?", species)
	}

	var products []models.Product
	if err := query.Order("created_at DESC, id DESC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListByProducer(ctx context.Context, producerID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("producer_id = ?", producerID).
		Order("created_at DESC, id DESC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Archive is a guarded update: only the owning producer can archive, and an
// already archived lot is left untouched so the caller can report the
// conflict.
func (r *repository) Archive(ctx context.Context, productID, producerID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND producer_id = ? AND status <> ?", productID, producerID, enums.ProductStatusArchived).
		UpdateColumn("status", enums.ProductStatusArchived)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindBatch(ctx context.Context, batchID uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).First(&batch, "id = ?", batchID).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) FindFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error) {
	var farm models.Farm
	err := r.db.WithContext(ctx).First(&farm, "id = ?", farmID).Error
	if err != nil {
		return nil, err
	}
	return &farm, nil
}
