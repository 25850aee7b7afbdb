package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"finance-service/internal/model"
	"finance-service/pkg/database"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
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

// jsonContext builds an authenticated echo context carrying a JSON body.
func jsonContext(t *testing.T, method, target string, body interface{}, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	e := echo.New()
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user_id", userID)
	}
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// jsonNumber renders a decoded JSON numeric value for decimal parsing.
func jsonNumber(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

func seedOwner(t *testing.T, db *gorm.DB, email string) (*model.User, *model.BusinessUnit) {
	t.Helper()
	user := &model.User{Name: "Owner", Email: email}
	require.NoError(t, db.Create(user).Error)

	unit := &model.BusinessUnit{OwnerID: user.ID, Name: "Main", IsPrimary: true}
	require.NoError(t, db.Create(unit).Error)
	require.NoError(t, db.Create(&model.UserPermission{
		UserID:         user.ID,
		BusinessUnitID: unit.ID,
		Role:           model.PermissionOwner,
	}).Error)
	return user, unit
}

func addUnit(t *testing.T, db *gorm.DB, user *model.User, name string) *model.BusinessUnit {
	t.Helper()
	unit := &model.BusinessUnit{OwnerID: user.ID, Name: name}
	require.NoError(t, db.Create(unit).Error)
	require.NoError(t, db.Create(&model.UserPermission{
		UserID:         user.ID,
		BusinessUnitID: unit.ID,
		Role:           model.PermissionOwner,
	}).Error)
	return unit
}
