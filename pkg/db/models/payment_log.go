package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// PaymentLog keeps the raw webhook payload for every payment event the
// gateway reports, for audit and reconciliation.
type PaymentLog struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index"`
	GatewayRef  string                   `gorm:"column:gateway_ref;not null"`
	EventStatus enums.PaymentEventStatus `gorm:"column:event_status;type:text;not null"`
	GrossAmount decimal.Decimal          `gorm:"column:gross_amount;type:decimal(15,2);not null"`
	RawPayload  json.RawMessage          `gorm:"column:raw_payload;type:jsonb"`
	PaidAt      *time.Time               `gorm:"column:paid_at"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (p *PaymentLog) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
