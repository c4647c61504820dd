package service

import (
	"time"

	"vendora/config"
	"vendora/internal/domain"
	"vendora/internal/models"
	"vendora/internal/repository"

	"gorm.io/gorm"
)

// PenaltyEngine computes cancellation penalties and accumulates strikes.
// Strikes are append-only; the ban decision is derived by counting them at read
// time. The per-user exemption flag suppresses enforcement only; strikes are
// recorded for exempt users exactly as for everyone else.
type PenaltyEngine struct {
	cfg     *config.ShopConfig
	strikes *repository.StrikeRepository
	users   *repository.UserRepository
}

func NewPenaltyEngine(cfg *config.ShopConfig, strikes *repository.StrikeRepository, users *repository.UserRepository) *PenaltyEngine {
	return &PenaltyEngine{cfg: cfg, strikes: strikes, users: users}
}

// WithinGrace reports whether the elapsed time since order creation is still
// inside the free-cancellation window.
func (e *PenaltyEngine) WithinGrace(order *models.Order, at time.Time) bool {
	return at.Sub(order.CreatedAt) <= e.cfg.CancelGracePeriod
}

// CancellationPenalty is zero inside the grace window, else a percentage of the
// wallet portion the user actually risked. Funds never charged are never
// penalized.
func (e *PenaltyEngine) CancellationPenalty(order *models.Order, cancelledAt time.Time) int64 {
	if e.WithinGrace(order, cancelledAt) {
		return 0
	}
	return domain.PercentOf(order.WalletCreditCents, e.cfg.LatePenaltyPct)
}

func (e *PenaltyEngine) RecordStrike(tx *gorm.DB, userID uint, strikeType string, orderID *uint, reason string) error {
	return e.strikes.WithTx(tx).Create(&models.UserStrike{
		UserID:  userID,
		Type:    strikeType,
		OrderID: orderID,
		Reason:  reason,
	})
}

func (e *PenaltyEngine) StrikeCount(userID uint) (int64, error) {
	return e.strikes.CountByUser(userID)
}

// IsBanned derives the ban from the strike log and the exemption flag.
func (e *PenaltyEngine) IsBanned(userID uint) (bool, error) {
	n, err := e.strikes.CountByUser(userID)
	if err != nil {
		return false, err
	}
	if n < int64(e.cfg.MaxStrikesBeforeBan) {
		return false, nil
	}
	u, err := e.users.GetByID(userID)
	if err != nil {
		return false, err
	}
	return !u.StrikeExempt, nil
}
