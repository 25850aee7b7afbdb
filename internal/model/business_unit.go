package model

import (
	"time"

	"gorm.io/gorm"
)

// BusinessUnit represents a fiscal entity owned by a user.
// Every ledger row is scoped to exactly one business unit; the primary
// unit is the default scope when a request names none.
type BusinessUnit struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	OwnerID   uint           `json:"owner_id" gorm:"index;not null"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	TaxID     string         `json:"tax_id" gorm:"type:varchar(20)"`
	IsPrimary bool           `json:"is_primary" gorm:"default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
