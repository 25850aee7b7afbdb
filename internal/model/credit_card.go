package model

import (
	"time"

	"gorm.io/gorm"
)

// CreditCard holds display metadata for a user's card. Transactions may
// reference a card when paid with "Credit Card".
type CreditCard struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	UserID     uint           `json:"user_id" gorm:"index;not null"`
	Name       string         `json:"name" gorm:"type:varchar(100);not null"`
	Brand      string         `json:"brand" gorm:"type:varchar(50)"`
	LastFour   string         `json:"last_four" gorm:"type:varchar(4)"`
	ClosingDay int            `json:"closing_day"`
	DueDay     int            `json:"due_day"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
