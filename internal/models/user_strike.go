package models

import (
	"time"
)

// UserStrike is append-only. Bans are derived by counting rows at read time,
// never from a mutable counter that can drift.
type UserStrike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"size:32;not null" json:"type"` // TIMEOUT | LATE_CANCELLATION
	OrderID   *uint     `json:"order_id"`
	Reason    string    `gorm:"size:255" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserStrike) TableName() string { return "user_strikes" }
