package handler

import (
	"net/http"
	"testing"

	"finance-service/internal/model"
	"finance-service/pkg/config"
	"finance-service/pkg/jwtutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initJWT() {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})
}

func TestRegisterCreatesPrimaryBusinessUnit(t *testing.T) {
	db := setupTestDB(t)
	initJWT()

	c, rec := jsonContext(t, http.MethodPost, "/auth/register", map[string]interface{}{
		"name":          "Maria",
		"email":         "maria@example.com",
		"password":      "s3cret",
		"business_name": "Doceria da Maria",
		"tax_id":        "12345678000190",
	}, 0)
	require.NoError(t, Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var user model.User
	require.NoError(t, db.Where("email = ?", "maria@example.com").First(&user).Error)
	assert.NotEqual(t, "s3cret", user.Password)

	var unit model.BusinessUnit
	require.NoError(t, db.Where("owner_id = ?", user.ID).First(&unit).Error)
	assert.True(t, unit.IsPrimary)
	assert.Equal(t, "Doceria da Maria", unit.Name)

	var permission model.UserPermission
	require.NoError(t, db.Where("user_id = ? AND business_unit_id = ?", user.ID, unit.ID).First(&permission).Error)
	assert.Equal(t, model.PermissionOwner, permission.Role)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	setupTestDB(t)
	initJWT()

	payload := map[string]interface{}{
		"name":     "Maria",
		"email":    "maria@example.com",
		"password": "s3cret",
	}

	c, rec := jsonContext(t, http.MethodPost, "/auth/register", payload, 0)
	require.NoError(t, Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = jsonContext(t, http.MethodPost, "/auth/register", payload, 0)
	require.NoError(t, Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterRequiresEmailAndPassword(t *testing.T) {
	setupTestDB(t)
	initJWT()

	c, rec := jsonContext(t, http.MethodPost, "/auth/register", map[string]interface{}{
		"name": "No Credentials",
	}, 0)
	require.NoError(t, Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	setupTestDB(t)
	initJWT()

	c, rec := jsonContext(t, http.MethodPost, "/auth/register", map[string]interface{}{
		"name":     "Maria",
		"email":    "maria@example.com",
		"password": "s3cret",
	}, 0)
	require.NoError(t, Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = jsonContext(t, http.MethodPost, "/auth/login", map[string]interface{}{
		"email":    "maria@example.com",
		"password": "s3cret",
	}, 0)
	require.NoError(t, Login(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])

	c, rec = jsonContext(t, http.MethodPost, "/auth/login", map[string]interface{}{
		"email":    "maria@example.com",
		"password": "wrong",
	}, 0)
	require.NoError(t, Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = jsonContext(t, http.MethodPost, "/auth/login", map[string]interface{}{
		"email":    "nobody@example.com",
		"password": "s3cret",
	}, 0)
	require.NoError(t, Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginBlockedUser(t *testing.T) {
	db := setupTestDB(t)
	initJWT()

	c, rec := jsonContext(t, http.MethodPost, "/auth/register", map[string]interface{}{
		"name":     "Blocked",
		"email":    "blocked@example.com",
		"password": "s3cret",
	}, 0)
	require.NoError(t, Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, db.Model(&model.User{}).
		Where("email = ?", "blocked@example.com").
		Update("blocked", true).Error)

	c, rec = jsonContext(t, http.MethodPost, "/auth/login", map[string]interface{}{
		"email":    "blocked@example.com",
		"password": "s3cret",
	}, 0)
	require.NoError(t, Login(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
