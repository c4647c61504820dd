package repository

import (
	"errors"
	"time"

	"vendora/internal/domain"
	"vendora/internal/models"

	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

func (r *OrderRepository) Create(o *models.Order) error {
	return r.db.Create(o).Error
}

func (r *OrderRepository) CreateItems(items []models.OrderItem) error {
	return r.db.Create(&items).Error
}

func (r *OrderRepository) GetByID(id uint) (*models.Order, error) {
	var o models.Order
	err := r.db.First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	var o models.Order
	err := lockForUpdate(r.db).First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) ListItems(orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.Where("order_id = ?", orderID).Find(&items).Error
	return items, err
}

// OpenByUser returns the user's open order, if any. At most one exists.
func (r *OrderRepository) OpenByUser(userID uint) (*models.Order, error) {
	var o models.Order
	err := r.db.Where("user_id = ? AND status IN ?", userID, domain.OpenOrderStatuses).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) ListByUser(userID uint, limit, offset int) ([]models.Order, error) {
	var list []models.Order
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// ListExpired returns open orders whose deadline has passed, for the sweeper.
func (r *OrderRepository) ListExpired(now time.Time, limit int) ([]models.Order, error) {
	var list []models.Order
	err := r.db.Where("status IN ? AND expires_at < ?", domain.OpenOrderStatuses, now).
		Order("expires_at ASC").Limit(limit).Find(&list).Error
	return list, err
}

// Transition flips status only if the current persisted status matches one of
// the expected pre-states. Returns InvalidOrderStateError when another writer
// got there first; callers must re-read and decide.
func (r *OrderRepository) Transition(orderID uint, from []string, to string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	res := r.db.Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var o models.Order
		if err := r.db.First(&o, orderID).Error; err != nil {
			return domain.ErrOrderNotFound
		}
		return &domain.InvalidOrderStateError{Expected: from, Actual: o.Status}
	}
	return nil
}

func (r *OrderRepository) IncrementRetryCount(orderID uint) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("retry_count", gorm.Expr("retry_count + 1")).Error
}
