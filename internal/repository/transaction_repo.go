package repository

import (
	"errors"

	"vendora/internal/domain"
	"vendora/internal/models"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// Create inserts the immutable settlement record. The unique index on tx_hash is
// the replay guard of last resort: a duplicate insert surfaces as
// ErrDuplicateTransaction even when two webhook deliveries race.
func (r *TransactionRepository) Create(t *models.PaymentTransaction) error {
	err := r.db.Create(t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateTransaction
	}
	return err
}

func (r *TransactionRepository) GetByHash(hash string) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	err := r.db.Where("tx_hash = ?", hash).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) ListByOrder(orderID uint) ([]models.PaymentTransaction, error) {
	var list []models.PaymentTransaction
	err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&list).Error
	return list, err
}

// SumReceivedByOrder totals every amount received against the order, across all
// of its invoices. Used when a system cancellation credits partial receipts back.
func (r *TransactionRepository) SumReceivedByOrder(orderID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.PaymentTransaction{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	return total, err
}
