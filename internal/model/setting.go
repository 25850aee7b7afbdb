package model

import "time"

// Well-known setting keys
const (
	SettingAccessToken  = "mp_access_token" // processor credential, encrypted
	SettingTrialEnabled = "trial_enabled"
	SettingTrialDays    = "trial_days"
)

// SystemSetting is a key/value pair. Encrypted values are AES-GCM
// ciphertext, base64-encoded with the nonce prepended.
type SystemSetting struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Key       string    `json:"key" gorm:"type:varchar(100);uniqueIndex;not null"`
	Value     string    `json:"value" gorm:"type:text"`
	Encrypted bool      `json:"encrypted" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
