package repository

import (
	"vendora/internal/models"

	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) WithTx(tx *gorm.DB) *ProductRepository {
	return &ProductRepository{db: tx}
}

func (r *ProductRepository) Create(p *models.Product) error {
	return r.db.Create(p).Error
}

func (r *ProductRepository) Update(p *models.Product) error {
	return r.db.Save(p).Error
}

func (r *ProductRepository) GetByID(id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) GetBySKU(sku string) (*models.Product, error) {
	var p models.Product
	if err := r.db.Where("sku = ?", sku).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) List(limit, offset int) ([]models.Product, error) {
	var list []models.Product
	err := r.db.Order("sku ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// GetForUpdate loads a product under a row lock so concurrent reservations for
// the same SKU serialize on its availability row.
func (r *ProductRepository) GetForUpdate(id uint) (*models.Product, error) {
	var p models.Product
	if err := lockForUpdate(r.db).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// AddSold moves qty units from reserved into the permanent sale count.
func (r *ProductRepository) AddSold(productID uint, qty int) error {
	return r.db.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("sold_quantity", gorm.Expr("sold_quantity + ?", qty)).Error
}
