package orders

import (
	"github.com/google/uuid"

	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/geo"
)

// ItemInput is one product line in a new order.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	QtyKg     int       `json:"qty_kg" validate:"required,gt=0"`
	Note      *string   `json:"note,omitempty"`
}

// CreateOrderInput carries everything needed to place an order. Distance is
// resolved in this precedence: explicit DistanceKm, then routing between the
// coordinate pair, then the configured default.
type CreateOrderInput struct {
	BuyerID         uuid.UUID   `json:"buyer_id" validate:"required"`
	Items           []ItemInput `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress string      `json:"delivery_address" validate:"required"`
	DeliveryNote    *string     `json:"delivery_note,omitempty"`
	Insured         bool        `json:"insured"`
	DistanceKm      *float64    `json:"distance_km,omitempty" validate:"omitempty,gt=0"`
	Origin          *geo.Point  `json:"origin,omitempty"`
	Destination     *geo.Point  `json:"destination,omitempty"`
}

// CancelOrderInput identifies the order and the acting buyer. A nil ActorID
// cancels unconditionally (platform-initiated expiry).
type CancelOrderInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
