package models

import (
	"time"
)

// PaymentTransaction is the immutable audit record of one inbound settlement
// event. TxHash is the dedup key: a hash already present short-circuits the
// webhook to a no-op. No soft delete, no updates.
type PaymentTransaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	InvoiceID    uint      `gorm:"not null;index" json:"invoice_id"`
	OrderID      uint      `gorm:"not null;index" json:"order_id"`
	TxHash       string    `gorm:"uniqueIndex;size:128;not null" json:"tx_hash"`
	AmountCents  int64     `gorm:"not null" json:"amount_cents"`
	Currency     string    `gorm:"size:8;not null" json:"currency"`
	Underpayment bool      `gorm:"not null;default:false" json:"underpayment"`
	Overpayment  bool      `gorm:"not null;default:false" json:"overpayment"`
	LatePayment  bool      `gorm:"not null;default:false" json:"late_payment"`
	PenaltyCents int64     `gorm:"not null;default:0" json:"penalty_cents"`
	ReceivedAt   time.Time `gorm:"not null" json:"received_at"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }
