package models

import (
	"time"
)

// Invoice is one payment request for an order. State is a two-value Moore
// automaton: ACTIVE (payments apply) or INACTIVE (absorbing, never revisited).
// An order has more than one invoice only after an underpayment retry, where the
// child carries the shortfall and points back via ParentInvoiceID.
type Invoice struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrderID         uint      `gorm:"not null;index" json:"order_id"`
	InvoiceNumber   string    `gorm:"uniqueIndex;size:32;not null" json:"invoice_number"` // INV-{year}-{6 alnum}
	PaymentAddress  *string   `gorm:"size:255" json:"payment_address"`                    // nil for credit-only invoices
	RequiredCents   int64     `gorm:"not null" json:"required_cents"`
	Currency        string    `gorm:"size:8;not null" json:"currency"`
	ParentInvoiceID *uint     `json:"parent_invoice_id"`
	State           string    `gorm:"size:16;not null;index" json:"state"` // ACTIVE | INACTIVE
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }
