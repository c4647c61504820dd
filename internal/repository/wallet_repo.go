package repository

import (
	"errors"

	"vendora/internal/domain"
	"vendora/internal/models"

	"gorm.io/gorm"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) WithTx(tx *gorm.DB) *WalletRepository {
	return &WalletRepository{db: tx}
}

func (r *WalletRepository) GetByUserID(userID uint) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepository) GetOrCreate(userID uint, currency string) (*models.Wallet, error) {
	w, err := r.GetByUserID(userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	w = &models.Wallet{UserID: userID, BalanceCents: 0, Currency: currency}
	if err := r.db.Create(w).Error; err != nil {
		return nil, err
	}
	return w, nil
}

// Credit adds to the balance atomically and records the audit row.
func (r *WalletRepository) Credit(userID uint, amountCents int64, txType, reference string) error {
	if amountCents <= 0 {
		return nil
	}
	res := r.db.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := r.db.Create(&models.Wallet{UserID: userID, BalanceCents: amountCents}).Error; err != nil {
			return err
		}
	}
	return r.recordTransaction(userID, amountCents, txType, reference)
}

// Debit subtracts from the balance, failing with ErrInsufficientBalance rather
// than ever going negative. The guard is in the WHERE clause so two concurrent
// debits cannot both succeed against the same funds.
func (r *WalletRepository) Debit(userID uint, amountCents int64, txType, reference string) error {
	if amountCents <= 0 {
		return nil
	}
	res := r.db.Model(&models.Wallet{}).
		Where("user_id = ? AND balance_cents >= ?", userID, amountCents).
		Update("balance_cents", gorm.Expr("balance_cents - ?", amountCents))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInsufficientBalance
	}
	return r.recordTransaction(userID, -amountCents, txType, reference)
}

func (r *WalletRepository) recordTransaction(userID uint, amountCents int64, txType, reference string) error {
	return r.db.Create(&models.WalletTransaction{
		UserID:      userID,
		AmountCents: amountCents,
		Type:        txType,
		Reference:   reference,
	}).Error
}

func (r *WalletRepository) ListTransactions(userID uint, limit, offset int) ([]models.WalletTransaction, error) {
	var list []models.WalletTransaction
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}
