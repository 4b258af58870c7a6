package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction's balance effect.
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// RecurringInterval is the cadence of a recurring transaction.
type RecurringInterval string

const (
	IntervalDaily   RecurringInterval = "DAILY"
	IntervalWeekly  RecurringInterval = "WEEKLY"
	IntervalMonthly RecurringInterval = "MONTHLY"
	IntervalYearly  RecurringInterval = "YEARLY"
)

// Transaction represents a single income or expense row. Amount is always
// positive; the sign is applied by Type. NextRecurringDate is set iff
// IsRecurring with a valid interval.
type Transaction struct {
	ID                uint `gorm:"primaryKey"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	UserID            uint               `gorm:"index;not null"`
	AccountID         uint               `gorm:"index;not null"`
	Type              TransactionType    `gorm:"size:16;not null"`
	Amount            decimal.Decimal    `gorm:"type:numeric(18,2);not null"`
	Description       string             `gorm:"size:512"`
	Category          string             `gorm:"size:64"`
	Date              time.Time          `gorm:"index;not null"`
	IsRecurring       bool               `gorm:"not null;default:false"`
	RecurringInterval *RecurringInterval `gorm:"size:16"`
	NextRecurringDate *time.Time
}

// ValidInterval reports whether s names a supported recurring interval.
func ValidInterval(s RecurringInterval) bool {
	switch s {
	case IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}
