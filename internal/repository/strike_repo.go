package repository

import (
	"vendora/internal/models"

	"gorm.io/gorm"
)

// StrikeRepository is append-only: no update or delete methods exist on purpose.
type StrikeRepository struct {
	db *gorm.DB
}

func NewStrikeRepository(db *gorm.DB) *StrikeRepository {
	return &StrikeRepository{db: db}
}

func (r *StrikeRepository) WithTx(tx *gorm.DB) *StrikeRepository {
	return &StrikeRepository{db: tx}
}

func (r *StrikeRepository) Create(s *models.UserStrike) error {
	return r.db.Create(s).Error
}

func (r *StrikeRepository) CountByUser(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.UserStrike{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *StrikeRepository) ListByUser(userID uint) ([]models.UserStrike, error) {
	var list []models.UserStrike
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&list).Error
	return list, err
}
