package repository

import (
	"errors"

	"vendora/internal/domain"
	"vendora/internal/models"

	"gorm.io/gorm"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) WithTx(tx *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: tx}
}

func (r *InvoiceRepository) Create(inv *models.Invoice) error {
	return r.db.Create(inv).Error
}

// GetByNumber resolves an invoice for settlement. With includeInactive=false
// (the only mode payment processing may use) an inactive invoice is not found.
func (r *InvoiceRepository) GetByNumber(number string, includeInactive bool) (*models.Invoice, error) {
	q := r.db.Where("invoice_number = ?", number)
	if !includeInactive {
		q = q.Where("state = ?", domain.InvoiceActive)
	}
	var inv models.Invoice
	err := q.First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetByIDForUpdate(id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := lockForUpdate(r.db).First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ActiveByOrder returns the newest active invoice for the order, or ErrInvoiceNotFound.
func (r *InvoiceRepository) ActiveByOrder(orderID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.Where("order_id = ? AND state = ?", orderID, domain.InvoiceActive).
		Order("id DESC").First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// History returns every invoice for the order, active or not. Audit/compliance
// only; never used for payment-processing decisions.
func (r *InvoiceRepository) History(orderID uint) ([]models.Invoice, error) {
	var list []models.Invoice
	err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&list).Error
	return list, err
}

// DeactivateAllForOrder freezes every invoice of the order. INACTIVE is
// absorbing: rows already inactive are untouched, so this is idempotent.
func (r *InvoiceRepository) DeactivateAllForOrder(orderID uint) error {
	return r.db.Model(&models.Invoice{}).
		Where("order_id = ? AND state = ?", orderID, domain.InvoiceActive).
		Update("state", domain.InvoiceInactive).Error
}

// CountActiveForOrder is used to enforce the single-active-invoice invariant.
func (r *InvoiceRepository) CountActiveForOrder(orderID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Invoice{}).
		Where("order_id = ? AND state = ?", orderID, domain.InvoiceActive).
		Count(&n).Error
	return n, err
}
