package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a user's monthly spending threshold (one per user).
// LastAlertSent gates the alert mail to at most once per calendar month.
type Budget struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	UserID        uint            `gorm:"uniqueIndex;not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	LastAlertSent *time.Time
}
