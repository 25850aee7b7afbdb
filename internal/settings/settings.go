// Package settings exposes the system_settings key/value table. Sensitive
// values (the processor credential) are stored encrypted at rest.
package settings

import (
	"errors"
	"strconv"

	"finance-service/internal/model"
	"finance-service/pkg/cryptoutil"
	"finance-service/pkg/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Get returns the raw value for key. Encrypted values are decrypted before
// being returned. The second result is false when the key is absent or the
// value cannot be decrypted.
func Get(key string) (string, bool) {
	var setting model.SystemSetting
	result := database.GetDB().Where("key = ?", key).First(&setting)
	if result.Error != nil {
		return "", false
	}

	if setting.Encrypted {
		plain, err := cryptoutil.Decrypt(setting.Value)
		if err != nil {
			return "", false
		}
		return plain, true
	}

	return setting.Value, true
}

// GetBool returns the value for key parsed as a boolean, or def.
func GetBool(key string, def bool) bool {
	value, ok := Get(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

// GetInt returns the value for key parsed as an integer, or def.
func GetInt(key string, def int) int {
	value, ok := Get(key)
	if !ok {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// Set upserts a plaintext setting.
func Set(key, value string) error {
	return upsert(key, value, false)
}

// SetEncrypted upserts a setting stored as AES-GCM ciphertext.
func SetEncrypted(key, value string) error {
	sealed, err := cryptoutil.Encrypt(value)
	if err != nil {
		return err
	}
	return upsert(key, sealed, true)
}

func upsert(key, value string, encrypted bool) error {
	setting := model.SystemSetting{Key: key, Value: value, Encrypted: encrypted}
	return database.GetDB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "encrypted", "updated_at"}),
	}).Create(&setting).Error
}

// Delete removes a setting. Missing keys are not an error.
func Delete(key string) error {
	result := database.GetDB().Where("key = ?", key).Delete(&model.SystemSetting{})
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil
	}
	return result.Error
}
