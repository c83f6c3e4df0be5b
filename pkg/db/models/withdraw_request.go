package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/pkg/enums"
)

// WithdrawRequest debits the wallet optimistically at creation time. A
// rejection reverses the debit with a compensating credit; approval has no
// further ledger effect because the funds already left the wallet.
type WithdrawRequest struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	WalletID    uuid.UUID            `gorm:"column:wallet_id;type:uuid;not null;index"`
	Amount      decimal.Decimal      `gorm:"column:amount;type:decimal(15,2);not null"`
	BankAccount string               `gorm:"column:bank_account;not null"`
	Status      enums.WithdrawStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	RequestedAt time.Time            `gorm:"column:requested_at;autoCreateTime"`
	ProcessedAt *time.Time           `gorm:"column:processed_at"`
}

func (w *WithdrawRequest) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
