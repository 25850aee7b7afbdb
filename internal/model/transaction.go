package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction directions
const (
	DirectionIncome  = "INCOME"
	DirectionExpense = "EXPENSE"
)

// Transaction target contexts
const (
	ContextPersonal = "PERSONAL"
	ContextBusiness = "BUSINESS"
)

// Transaction statuses
const (
	TransactionPaid    = "PAID"
	TransactionPending = "PENDING"
)

// Payment methods with special handling. A "Boleto" transaction is created
// PENDING and must carry a due date; a card reference is only kept for
// "Credit Card" transactions.
const (
	MethodBoleto     = "Boleto"
	MethodCreditCard = "Credit Card"
)

// FinanceTransaction is a ledger entry scoped to one business unit.
type FinanceTransaction struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	UserID         uint            `json:"user_id" gorm:"index;not null"`
	BusinessUnitID uint            `json:"business_unit_id" gorm:"index;not null"`
	Direction      string          `json:"direction" gorm:"type:varchar(10);not null"`
	Context        string          `json:"context" gorm:"type:varchar(10);default:'BUSINESS'"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Description    string          `json:"description" gorm:"type:varchar(255)"`
	ValueDate      time.Time       `json:"value_date"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	CategoryID     *uint           `json:"category_id,omitempty" gorm:"index"`
	CardID         *uint           `json:"card_id,omitempty" gorm:"index"`
	PaymentMethod  string          `json:"payment_method" gorm:"type:varchar(50)"`
	Recurring      bool            `json:"recurring" gorm:"default:false"`
	Subscription   bool            `json:"subscription" gorm:"default:false"`
	Status         string          `json:"status" gorm:"type:varchar(10);default:'PAID'"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`
}
