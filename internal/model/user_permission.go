package model

import (
	"time"

	"gorm.io/gorm"
)

// Permission roles within a business unit
const (
	PermissionOwner  = "owner"
	PermissionViewer = "viewer"
)

// UserPermission associates users with business units.
// A unit with no permission row is inaccessible, there is no fallback path.
type UserPermission struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	UserID         uint           `json:"user_id" gorm:"index;not null"`
	BusinessUnitID uint           `json:"business_unit_id" gorm:"index;not null"`
	Role           string         `json:"role" gorm:"type:varchar(50);not null;default:'owner'"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User         User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	BusinessUnit BusinessUnit `json:"business_unit,omitempty" gorm:"foreignKey:BusinessUnitID"`
}
