package payments

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notification is the normalized shape of a gateway webhook event.
type Notification struct {
	OrderID     uuid.UUID       `json:"order_id" validate:"required"`
	GatewayRef  string          `json:"gateway_ref" validate:"required"`
	Status      string          `json:"status" validate:"required"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	RawPayload  json.RawMessage `json:"-"`
}
