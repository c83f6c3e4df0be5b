package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// Wallet holds a party's balance. The platform escrow wallet uses
// OwnerID = uuid.Nil; producer and hauler wallets are keyed by their owner.
// The balance column is authoritative only together with the ledger: the sum
// of a wallet's entries must always equal Balance.
type Wallet struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OwnerType enums.WalletOwnerType `gorm:"column:owner_type;type:text;not null;uniqueIndex:uniq_wallet_owner,priority:1"`
	OwnerID   uuid.UUID             `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:uniq_wallet_owner,priority:2"`
	Balance   decimal.Decimal       `gorm:"column:balance;type:decimal(15,2);not null"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
