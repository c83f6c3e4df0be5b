package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Farm is a producer-owned production site. Batches chain their provenance
// hashes per farm, ordered by creation time.
type Farm struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProducerID uuid.UUID `gorm:"column:producer_id;type:uuid;not null;index"`
	Name       string    `gorm:"column:name;not null"`
	Location   string    `gorm:"column:location"`
	Latitude   *float64  `gorm:"column:latitude"`
	Longitude  *float64  `gorm:"column:longitude"`
	AreaM2     int       `gorm:"column:area_m2"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (f *Farm) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
