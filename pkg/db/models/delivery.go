package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// Delivery is created 1:1 with an order when payment settles. The two tokens
// are opaque single-use credentials: each authorizes exactly one transition
// and the status guard keeps a consumed token inert.
type Delivery struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	HaulerID      *uuid.UUID           `gorm:"column:hauler_id;type:uuid;index"`
	Status        enums.DeliveryStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	DistanceKm    float64              `gorm:"column:distance_km;not null"`
	Fee           decimal.Decimal      `gorm:"column:fee;type:decimal(15,2);not null"`
	PickupToken   string               `gorm:"column:pickup_token;not null;uniqueIndex"`
	DeliveryToken string               `gorm:"column:delivery_token;not null;uniqueIndex"`
	PickedUpAt    *time.Time           `gorm:"column:picked_up_at"`
	DeliveredAt   *time.Time           `gorm:"column:delivered_at"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Delivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
