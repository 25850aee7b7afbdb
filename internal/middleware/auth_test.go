package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"finance-service/internal/model"
	"finance-service/internal/planlife"
	"finance-service/pkg/config"
	"finance-service/pkg/database"
	"finance-service/pkg/jwtutil"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
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

func authSetup(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})
	planlife.Initialize(&config.Config{})

	require.NoError(t, db.Create(&model.Plan{Name: "Gratuito", Price: decimal.Zero, Active: true}).Error)
	user := &model.User{Name: "Maria", Email: "maria@example.com", Role: model.RoleUser}
	require.NoError(t, db.Create(user).Error)
	return user
}

func invoke(t *testing.T, token string) (echo.Context, *httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	handler := AuthMiddleware(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return c, rec, reached
}

func TestAuthMiddlewareResolvesPrincipal(t *testing.T) {
	db := setupTestDB(t)
	user := authSetup(t, db)

	token, err := jwtutil.GenerateToken(user.Email, user.ID, user.Role)
	require.NoError(t, err)

	c, rec, reached := invoke(t, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)

	assert.Equal(t, user.ID, c.Get("user_id"))
	assert.Equal(t, user.Email, c.Get("email"))
	loaded, ok := c.Get("user").(*model.User)
	require.True(t, ok)
	assert.Equal(t, user.ID, loaded.ID)

	effective, ok := c.Get("effective_plan").(*planlife.Effective)
	require.True(t, ok)
	require.NotNil(t, effective.Plan)
	assert.True(t, effective.Plan.IsFree())
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	db := setupTestDB(t)
	authSetup(t, db)

	_, rec, reached := invoke(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)

	_, rec, reached = invoke(t, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)

	_, rec, reached = invoke(t, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthMiddlewareRejectsDeletedUser(t *testing.T) {
	db := setupTestDB(t)
	user := authSetup(t, db)

	token, err := jwtutil.GenerateToken(user.Email, user.ID, user.Role)
	require.NoError(t, err)
	require.NoError(t, db.Unscoped().Delete(user).Error)

	_, rec, reached := invoke(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthMiddlewareRejectsBlockedUser(t *testing.T) {
	db := setupTestDB(t)
	user := authSetup(t, db)

	token, err := jwtutil.GenerateToken(user.Email, user.ID, user.Role)
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("blocked", true).Error)

	_, rec, reached := invoke(t, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}
