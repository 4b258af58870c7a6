package models

import (
	"time"
)

// User model
type User struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time `gorm:"index"`
	Username       string     `gorm:"size:255;not null;unique"`
	HashedPassword []byte     `gorm:"not null" json:"-"`
	Name           string     `gorm:"size:255"`
	Email          string     `gorm:"size:255;index"`
	Accounts       []Account
	Transactions   []Transaction
	Budget         *Budget `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	RoleID         *uint   `gorm:"index"`
	Role           Role    `gorm:"foreignKey:RoleID;references:ID"`
}
