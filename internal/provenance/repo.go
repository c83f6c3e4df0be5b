package provenance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/db"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
)

// Repository persists farms and batches and walks farm chains.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateFarm(ctx context.Context, farm *models.Farm) error
	FindFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error)
	FindFarmForUpdate(ctx context.Context, farmID uuid.UUID) (*models.Farm, error)
	ListFarmsByProducer(ctx context.Context, producerID uuid.UUID) ([]models.Farm, error)
	Create(ctx context.Context, batch *models.Batch) error
	Find(ctx context.Context, batchID uuid.UUID) (*models.Batch, error)
	FindForUpdate(ctx context.Context, batchID uuid.UUID) (*models.Batch, error)
	FindLatestByFarm(ctx context.Context, farmID uuid.UUID) (*models.Batch, error)
	UpdateHashedFields(ctx context.Context, batch *models.Batch) error
	ListByFarmChronological(ctx context.Context, farmID uuid.UUID) ([]models.Batch, error)
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

func (r *repository) CreateFarm(ctx context.Context, farm *models.Farm) error {
	return r.db.WithContext(ctx).Create(farm).Error
}

func (r *repository) FindFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error) {
	var farm models.Farm
	err := r.db.WithContext(ctx).First(&farm, "id = ?", farmID).Error
	if err != nil {
		return nil, err
	}
	return &farm, nil
}

// FindFarmForUpdate locks the farm row. Appends take this lock before reading
// the chain head so two first-batch appends cannot both see an empty chain.
func (r *repository) FindFarmForUpdate(ctx context.Context, farmID uuid.UUID) (*models.Farm, error) {
	var farm models.Farm
	err := db.LockForUpdate(r.db.WithContext(ctx)).
		First(&farm, "id = ?", farmID).Error
	if err != nil {
		return nil, err
	}
	return &farm, nil
}

func (r *repository) ListFarmsByProducer(ctx context.Context, producerID uuid.UUID) ([]models.Farm, error) {
	var farms []models.Farm
	err := r.db.WithContext(ctx).
		Where("producer_id = ?", producerID).
		Order("created_at ASC, id ASC").
		Find(&farms).Error
	if err != nil {
		return nil, err
	}
	return farms, nil
}

func (r *repository) Create(ctx context.Context, batch *models.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *repository) Find(ctx context.Context, batchID uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).First(&batch, "id = ?", batchID).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) FindForUpdate(ctx context.Context, batchID uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := db.LockForUpdate(r.db.WithContext(ctx)).
		First(&batch, "id = ?", batchID).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindLatestByFarm returns the chain head; nil means an empty chain. Callers
// must hold the farm row lock, which serializes appends even when no batch
// row exists yet to lock.
func (r *repository) FindLatestByFarm(ctx context.Context, farmID uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).
		Where("farm_id = ?", farmID).
		Order("created_at DESC, id DESC").
		First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) UpdateHashedFields(ctx context.Context, batch *models.Batch) error {
	return r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ?", batch.ID).
		Updates(map[string]any{
			"harvest_date": batch.HarvestDate,
			"status":       batch.Status,
			"current_hash": batch.CurrentHash,
		}).Error
}

func (r *repository) ListByFarmChronological(ctx context.Context, farmID uuid.UUID) ([]models.Batch, error) {
	var batches []models.Batch
	err := r.db.WithContext(ctx).
		Where("farm_id = ?", farmID).
		Order("created_at ASC, id ASC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}
