package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bill statuses (kept in the original vocabulary of the bills table)
const (
	BillPending = "PENDENTE"
	BillPaid    = "PAGO"
)

// Bill is a due-date-bearing obligation scoped to one business unit.
// Bills and PENDING transactions are distinct entities with distinct code
// paths; both are real and both are kept.
type Bill struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	UserID         uint            `json:"user_id" gorm:"index;not null"`
	BusinessUnitID uint            `json:"business_unit_id" gorm:"index;not null"`
	Description    string          `json:"description" gorm:"type:varchar(255);not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	DueDate        time.Time       `json:"due_date" gorm:"not null"`
	CategoryID     *uint           `json:"category_id,omitempty" gorm:"index"`
	CardID         *uint           `json:"card_id,omitempty" gorm:"index"`
	Recurring      bool            `json:"recurring" gorm:"default:false"`
	Status         string          `json:"status" gorm:"type:varchar(10);default:'PENDENTE'"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`
}
