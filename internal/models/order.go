package models

import (
	"time"
)

// Order is mutated only by the order service and becomes immutable once terminal.
// No soft delete: orders are a financial record.
type Order struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;index" json:"user_id"`
	TotalCents        int64     `gorm:"not null" json:"total_cents"`
	WalletCreditCents int64     `gorm:"not null;default:0" json:"wallet_credit_cents"`
	Currency          string    `gorm:"size:8;not null" json:"currency"`
	Status            string    `gorm:"size:32;not null;index" json:"status"`
	RetryCount        int       `gorm:"not null;default:0" json:"retry_count"` // underpayment retries consumed
	HasPhysical       bool      `gorm:"not null;default:false" json:"has_physical"`
	ShippingAddress   string    `gorm:"size:512" json:"shipping_address"`
	ExpiresAt         time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }
