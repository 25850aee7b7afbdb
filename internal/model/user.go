package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Subscription statuses
const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
	SubscriptionExpired  = "expired"
)

// User represents the user model stored in the database
type User struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	Name               string         `json:"name" gorm:"type:varchar(100)"`
	Email              string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password           string         `json:"-" gorm:"type:varchar(255)"`
	Role               string         `json:"role" gorm:"type:varchar(20);default:'USER'"`
	PlanID             *uint          `json:"plan_id,omitempty" gorm:"index"`
	PlanExpiresAt      *time.Time     `json:"plan_expires_at,omitempty"`
	SubscriptionStatus string         `json:"subscription_status" gorm:"type:varchar(20);default:'active'"`
	Blocked            bool           `json:"blocked" gorm:"default:false"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`
}
