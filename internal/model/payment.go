package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentPending is the only non-terminal payment status. Every other
// status comes verbatim from the processor (approved, rejected, cancelled,
// refunded, ...).
const (
	PaymentPending  = "pending"
	PaymentApproved = "approved"
)

// Payment is a subscription upgrade intent. Status is the only field
// mutated by reconciliation; rows are never deleted. PlanAppliedAt marks
// that the upgrade side effect already ran for this payment.
type Payment struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	UserID        uint            `json:"user_id" gorm:"index;not null"`
	ExternalID    string          `json:"external_id" gorm:"type:varchar(100);index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Status        string          `json:"status" gorm:"type:varchar(30);default:'pending'"`
	PlanID        uint            `json:"plan_id" gorm:"not null"`
	QRCode        string          `json:"qr_code" gorm:"type:text"`
	QRCodeBase64  string          `json:"qr_code_base64" gorm:"type:text"`
	PayerName     string          `json:"payer_name" gorm:"type:varchar(100)"`
	PayerDocument string          `json:"-" gorm:"type:text"` // AES-GCM encrypted at rest
	PlanAppliedAt *time.Time      `json:"plan_applied_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
