// Package tenant resolves which business unit a request operates against
// and scopes every ledger query to it. Resolution is a pure authorization
// decision: it never widens scope on failure.
package tenant

import (
	"errors"
	"strconv"

	"finance-service/internal/model"
	"finance-service/pkg/database"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Consolidated is the sentinel reference for the virtual read-only scope
// spanning every unit the principal can see.
const Consolidated = "consolidated"

// Where an explicit business reference may arrive. Header wins over body,
// body wins over query.
const (
	HeaderBusinessID = "X-Business-ID"
	QueryBusinessID  = "businessId"
)

var (
	// ErrNoBusinessAvailable means the principal owns no business unit at all.
	ErrNoBusinessAvailable = errors.New("no business unit available")
	// ErrAccessDenied covers both unknown units and units the principal
	// cannot see; existence is not leaked.
	ErrAccessDenied = errors.New("access denied")
	// ErrAmbiguousBusiness is returned for writes against the consolidated scope.
	ErrAmbiguousBusiness = errors.New("operation requires a concrete business unit")
)

// Context is a resolved tenant scope. ID is zero when Consolidated is set.
type Context struct {
	ID           uint   `json:"id,omitempty"`
	Consolidated bool   `json:"consolidated,omitempty"`
	Role         string `json:"role"`
}

// RefFromRequest extracts the explicit business reference with the fixed
// precedence header > body > query. bodyRef is whatever the handler bound
// from the request body, empty when the route has no body.
func RefFromRequest(c echo.Context, bodyRef string) string {
	if ref := c.Request().Header.Get(HeaderBusinessID); ref != "" {
		return ref
	}
	if bodyRef != "" {
		return bodyRef
	}
	return c.QueryParam(QueryBusinessID)
}

// Resolve determines the tenant scope for userID given an optional explicit
// reference. An empty ref falls back to the principal's primary unit, then
// any owned unit, then fails with ErrNoBusinessAvailable.
func Resolve(userID uint, ref string) (*Context, error) {
	if ref == "" {
		var unit model.BusinessUnit
		result := database.GetDB().
			Where("owner_id = ?", userID).
			Order("is_primary DESC, id ASC").
			First(&unit)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, ErrNoBusinessAvailable
			}
			return nil, result.Error
		}
		return &Context{ID: unit.ID, Role: model.PermissionOwner}, nil
	}

	if ref == Consolidated {
		// Virtual scope, no permission lookup: downstream queries filter to
		// the units the principal actually holds permissions on.
		return &Context{Consolidated: true, Role: model.PermissionViewer}, nil
	}

	unitID, err := strconv.ParseUint(ref, 10, 32)
	if err != nil {
		return nil, ErrAccessDenied
	}

	var permission model.UserPermission
	result := database.GetDB().
		Where("user_id = ? AND business_unit_id = ?", userID, uint(unitID)).
		First(&permission)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, result.Error
	}

	return &Context{ID: permission.BusinessUnitID, Role: permission.Role}, nil
}

// VisibleUnitIDs lists every business unit id the user holds a permission
// row for.
func VisibleUnitIDs(userID uint) ([]uint, error) {
	var ids []uint
	result := database.GetDB().
		Model(&model.UserPermission{}).
		Where("user_id = ?", userID).
		Pluck("business_unit_id", &ids)
	return ids, result.Error
}

// Scope returns a gorm scope restricting a ledger query to the resolved
// tenant. Consolidated scopes filter to the permission subquery, never to
// "all rows owned by the user".
func Scope(bc *Context, userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if bc.Consolidated {
			sub := database.GetDB().
				Model(&model.UserPermission{}).
				Select("business_unit_id").
				Where("user_id = ?", userID)
			return db.Where("business_unit_id IN (?)", sub)
		}
		return db.Where("business_unit_id = ?", bc.ID)
	}
}
