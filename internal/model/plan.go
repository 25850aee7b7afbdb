package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan is a subscription tier. Features holds a JSON map of named boolean
// feature flags. Read-mostly: the core only reads plans.
type Plan struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"type:varchar(100);not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Features  string          `json:"features" gorm:"type:jsonb"`
	Active    bool            `json:"active" gorm:"default:true"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `json:"-" gorm:"index"`
}

// IsFree reports whether the plan is the zero-price tier.
func (p *Plan) IsFree() bool {
	return p.Price.IsZero()
}
