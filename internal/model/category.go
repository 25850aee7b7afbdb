package model

import (
	"time"

	"gorm.io/gorm"
)

// Category types
const (
	CategoryIncome          = "INCOME"
	CategoryBusinessExpense = "BUSINESS_EXPENSE"
	CategoryPersonalExpense = "PERSONAL_EXPENSE"
)

// FinanceCategory is scoped per user, not per business unit: category names
// are shared across all of a user's units.
type FinanceCategory struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Type      string         `json:"type" gorm:"type:varchar(30);not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
