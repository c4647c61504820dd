package models

// OrderItem snapshots what was bought at which price; survives the cart being cleared.
type OrderItem struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	OrderID        uint   `gorm:"not null;index" json:"order_id"`
	ProductID      uint   `gorm:"not null" json:"product_id"`
	SKU            string `gorm:"size:64;not null" json:"sku"`
	Quantity       int    `gorm:"not null" json:"quantity"`
	UnitPriceCents int64  `gorm:"not null" json:"unit_price_cents"`
}

func (OrderItem) TableName() string { return "order_items" }
