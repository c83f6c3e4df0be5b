package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// Batch is one production run on a farm. CurrentHash covers the hashed fields
// plus PreviousHash, which points at the previous batch of the same farm in
// creation order (or the genesis sentinel). Whoever mutates a hashed field,
// including setting the harvest date, must recompute CurrentHash through
// provenance.ComputeHash before persisting.
type Batch struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	FarmID           uuid.UUID         `gorm:"column:farm_id;type:uuid;not null;index:idx_batches_farm_created,priority:1"`
	BatchCode        string            `gorm:"column:batch_code;uniqueIndex"`
	StockedDate      time.Time         `gorm:"column:stocked_date;not null"`
	HarvestDate      *time.Time        `gorm:"column:harvest_date"`
	SeedAgeDays      int               `gorm:"column:seed_age_days;not null"`
	SeedOrigin       string            `gorm:"column:seed_origin;not null"`
	WaterPH          float64           `gorm:"column:water_ph;not null"`
	WaterSalinity    float64           `gorm:"column:water_salinity;not null"`
	EstimatedYieldKg int               `gorm:"column:estimated_yield_kg;not null"`
	Notes            *string           `gorm:"column:notes"`
	Status           enums.BatchStatus `gorm:"column:status;type:text;not null;default:'ACTIVE'"`
	PreviousHash     string            `gorm:"column:previous_hash;not null"`
	CurrentHash      string            `gorm:"column:current_hash;not null"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime;index:idx_batches_farm_created,priority:2"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Batch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
