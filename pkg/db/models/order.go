package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// Order is a buyer's purchase across one producer site. Total is frozen at
// creation time: goods subtotal + logistics fee (+ insurance surcharge).
// Terminal statuses (COMPLETED, CANCELLED) are immutable.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID         uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	GoodsSubtotal   decimal.Decimal   `gorm:"column:goods_subtotal;type:decimal(15,2);not null"`
	LogisticsFee    decimal.Decimal   `gorm:"column:logistics_fee;type:decimal(15,2);not null"`
	InsuranceFee    decimal.Decimal   `gorm:"column:insurance_fee;type:decimal(15,2);not null"`
	Total           decimal.Decimal   `gorm:"column:total;type:decimal(15,2);not null"`
	DistanceKm      float64           `gorm:"column:distance_km;not null"`
	Insured         bool              `gorm:"column:insured;not null;default:false"`
	DeliveryAddress string            `gorm:"column:delivery_address;not null"`
	DeliveryNote    *string           `gorm:"column:delivery_note"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem snapshots price at order time; later product price changes must
// not affect placed orders. ProducerID is denormalized at the same moment so
// settlement does not depend on live catalog joins.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	ProducerID uuid.UUID       `gorm:"column:producer_id;type:uuid;not null;index"`
	QtyKg      int             `gorm:"column:qty_kg;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:decimal(15,2);not null"`
	Subtotal   decimal.Decimal `gorm:"column:subtotal;type:decimal(15,2);not null"`
	Note       *string         `gorm:"column:note"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
