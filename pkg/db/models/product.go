package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// Product is a sellable lot cut from a batch. StockKg is mutated only through
// the inventory reservation protocol.
type Product struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BatchID    uuid.UUID           `gorm:"column:batch_id;type:uuid;not null;index"`
	ProducerID uuid.UUID           `gorm:"column:producer_id;type:uuid;not null;index"`
	Species    string              `gorm:"column:species;not null"`
	Grade      string              `gorm:"column:grade;not null"`
	PricePerKg decimal.Decimal     `gorm:"column:price_per_kg;type:decimal(15,2);not null"`
	StockKg    int                 `gorm:"column:stock_kg;not null"`
	Status     enums.ProductStatus `gorm:"column:status;type:text;not null;default:'AVAILABLE'"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
