package models

import (
	"time"
)

// ReservedStock holds units out of general availability while an order is open.
// Created atomically with the order; deleted on release or converted on finalize.
type ReservedStock struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	ProductID  uint      `gorm:"not null;index" json:"product_id"`
	SKU        string    `gorm:"size:64;not null" json:"sku"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	ReservedAt time.Time `gorm:"not null" json:"reserved_at"`
}

func (ReservedStock) TableName() string { return "reserved_stocks" }
