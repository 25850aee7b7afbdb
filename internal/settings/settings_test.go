package settings

import (
	"testing"

	"finance-service/internal/model"
	"finance-service/pkg/cryptoutil"
	"finance-service/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.New().String()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.DB = db
	return db
}

func TestSetGetRoundTrip(t *testing.T) {
	setupTestDB(t)

	_, ok := Get("missing")
	assert.False(t, ok)

	require.NoError(t, Set("greeting", "hello"))
	value, ok := Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello", value)

	// Upsert on the same key replaces the value.
	require.NoError(t, Set("greeting", "oi"))
	value, ok = Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "oi", value)
}

func TestEncryptedSettingStoredAsCiphertext(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, cryptoutil.Initialize("0123456789abcdef0123456789abcdef"))

	require.NoError(t, SetEncrypted(model.SettingAccessToken, "APP_USR-secret"))

	var raw model.SystemSetting
	require.NoError(t, db.Where("key = ?", model.SettingAccessToken).First(&raw).Error)
	assert.True(t, raw.Encrypted)
	assert.NotEqual(t, "APP_USR-secret", raw.Value)

	value, ok := Get(model.SettingAccessToken)
	require.True(t, ok)
	assert.Equal(t, "APP_USR-secret", value)
}

func TestTypedGetters(t *testing.T) {
	setupTestDB(t)

	assert.True(t, GetBool("flag", true))
	require.NoError(t, Set("flag", "false"))
	assert.False(t, GetBool("flag", true))

	assert.Equal(t, 7, GetInt(model.SettingTrialDays, 7))
	require.NoError(t, Set(model.SettingTrialDays, "14"))
	assert.Equal(t, 14, GetInt(model.SettingTrialDays, 7))

	// Unparseable values fall back to the default.
	require.NoError(t, Set("flag", "maybe"))
	assert.True(t, GetBool("flag", true))
}

func TestDelete(t *testing.T) {
	setupTestDB(t)

	require.NoError(t, Set("ephemeral", "x"))
	require.NoError(t, Delete("ephemeral"))
	_, ok := Get("ephemeral")
	assert.False(t, ok)

	assert.NoError(t, Delete("never-existed"))
}
