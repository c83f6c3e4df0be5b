package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// LedgerEntry records one immutable money movement against a wallet. Entries
// are append-only: reversals are compensating entries, never updates. The
// unique reference makes every applying operation replay-safe.
type LedgerEntry struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	WalletID  uuid.UUID             `gorm:"column:wallet_id;type:uuid;not null;index:idx_ledger_wallet_created,priority:1"`
	Direction enums.LedgerDirection `gorm:"column:direction;type:text;not null"`
	Amount    decimal.Decimal       `gorm:"column:amount;type:decimal(15,2);not null"`
	Source    enums.LedgerSource    `gorm:"column:source;type:text;not null"`
	Reference string                `gorm:"column:reference;not null;uniqueIndex:uniq_ledger_reference"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime;index:idx_ledger_wallet_created,priority:2"`
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
