package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is a catalog SKU. Availability is never stored; it is always computed
// as TotalQuantity - SoldQuantity - sum(reserved_stock.quantity) under a row lock.
type Product struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SKU           string         `gorm:"uniqueIndex;size:64;not null" json:"sku"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	Kind          string         `gorm:"size:20;not null" json:"kind"` // DIGITAL | PHYSICAL
	PriceCents    int64          `gorm:"not null" json:"price_cents"`
	Currency      string         `gorm:"size:8;default:'USD'" json:"currency"`
	TotalQuantity int            `gorm:"not null;default:0" json:"total_quantity"`
	SoldQuantity  int            `gorm:"not null;default:0" json:"sold_quantity"`
	ImageURL      string         `gorm:"size:512" json:"image_url"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string { return "products" }
