package repository

import (
	"vendora/internal/models"

	"gorm.io/gorm"
)

type StockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) WithTx(tx *gorm.DB) *StockRepository {
	return &StockRepository{db: tx}
}

func (r *StockRepository) Create(rs *models.ReservedStock) error {
	return r.db.Create(rs).Error
}

// ReservedQuantity sums units currently held for a product across all orders.
func (r *StockRepository) ReservedQuantity(productID uint) (int, error) {
	var total int64
	err := r.db.Model(&models.ReservedStock{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return int(total), err
}

func (r *StockRepository) ListByOrder(orderID uint) ([]models.ReservedStock, error) {
	var list []models.ReservedStock
	err := r.db.Where("order_id = ?", orderID).Find(&list).Error
	return list, err
}

func (r *StockRepository) DeleteByOrder(orderID uint) error {
	return r.db.Where("order_id = ?", orderID).Delete(&models.ReservedStock{}).Error
}
