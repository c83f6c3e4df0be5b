package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Identity management is external; these rows exist so orders, farms and
// deliveries have stable references to attach to.

// Producer grows and sells product from one or more farms.
type Producer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Phone     string    `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (p *Producer) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Hauler transports goods between producers and buyers.
type Hauler struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Phone       string    `gorm:"column:phone"`
	VehiclePlate string   `gorm:"column:vehicle_plate"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (h *Hauler) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// Buyer places orders.
type Buyer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Phone     string    `gorm:"column:phone"`
	Address   string    `gorm:"column:address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (b *Buyer) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
