package repository

import (
	"vendora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) WithTx(tx *gorm.DB) *CartRepository {
	return &CartRepository{db: tx}
}

// Put inserts or replaces the quantity for a product in the user's cart.
func (r *CartRepository) Put(userID, productID uint, quantity int) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(&models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}).Error
}

func (r *CartRepository) Remove(userID, productID uint) error {
	return r.db.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.CartItem{}).Error
}

func (r *CartRepository) ListByUser(userID uint) ([]models.CartItem, error) {
	var list []models.CartItem
	err := r.db.Preload("Product").Where("user_id = ?", userID).Find(&list).Error
	return list, err
}

func (r *CartRepository) ClearByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}
