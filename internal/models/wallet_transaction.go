package models

import (
	"time"
)

// WalletTransaction records credits/debits for wallet history (order payments,
// refunds, penalties, overpayment and underpayment credits).
type WalletTransaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"` // positive = credit, negative = debit
	Type        string    `gorm:"size:30;not null;index" json:"type"`
	Reference   string    `gorm:"size:128" json:"reference"` // e.g. order_12, invoice INV-2026-AB12CD
	CreatedAt   time.Time `json:"created_at"`
}

func (WalletTransaction) TableName() string { return "wallet_transactions" }
