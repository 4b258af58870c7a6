package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account. Mirrors the values accepted by the API.
type AccountType string

const (
	AccountCurrent AccountType = "CURRENT"
	AccountSavings AccountType = "SAVINGS"
)

// Account holds a running balance owned by a user. The balance is only ever
// changed by the ledger engine through signed-delta increments; at most one
// account per user carries IsDefault.
type Account struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UserID       uint            `gorm:"index;not null;uniqueIndex:idx_user_account_name"`
	Name         string          `gorm:"size:255;not null;uniqueIndex:idx_user_account_name"`
	Type         AccountType     `gorm:"size:16;not null;default:CURRENT"`
	Balance      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	IsDefault    bool            `gorm:"not null;default:false"`
	Transactions []Transaction   `gorm:"foreignKey:AccountID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
