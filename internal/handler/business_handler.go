package handler

import (
	"net/http"
	"strconv"
	"time"

	"finance-service/internal/model"
	"finance-service/internal/tenant"
	"finance-service/pkg/database"
	"finance-service/pkg/logger"
	"finance-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateBusinessUnit creates an additional business unit for the owner and
// the matching owner permission row.
func CreateBusinessUnit(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		log.Error("Failed to get user ID from context")
		prometheus.RecordAuthError("unauthorized_business_creation")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Name      string `json:"name"`
		TaxID     string `json:"tax_id,omitempty"`
		IsPrimary bool   `json:"is_primary,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse business unit request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if req.IsPrimary {
		// A new primary demotes the previous one.
		if err := tx.Model(&model.BusinessUnit{}).
			Where("owner_id = ? AND is_primary = ?", userID, true).
			Update("is_primary", false).Error; err != nil {
			tx.Rollback()
			log.Error("Failed to demote previous primary unit", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business unit creation failed"})
		}
	}

	unit := model.BusinessUnit{
		OwnerID:   userID,
		Name:      req.Name,
		TaxID:     req.TaxID,
		IsPrimary: req.IsPrimary,
	}
	if result := tx.Create(&unit); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create business unit", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business unit creation failed"})
	}

	permission := model.UserPermission{
		UserID:         userID,
		BusinessUnitID: unit.ID,
		Role:           model.PermissionOwner,
	}
	if result := tx.Create(&permission); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create owner permission", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business unit creation failed"})
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business unit creation failed"})
	}

	log.Info("Business unit created",
		zap.Uint("id", unit.ID),
		zap.Uint("owner_id", userID),
		zap.String("name", unit.Name))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":       "Business unit created successfully",
		"business_unit": unit,
	})
}

// ListBusinessUnits lists every unit the principal holds a permission for.
func ListBusinessUnits(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var permissions []model.UserPermission
	if result := database.GetDB().
		Preload("BusinessUnit").
		Where("user_id = ?", userID).
		Find(&permissions); result.Error != nil {
		log.Error("Failed to list business units", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve business units"})
	}

	type UnitResponse struct {
		ID        uint      `json:"id"`
		Name      string    `json:"name"`
		TaxID     string    `json:"tax_id"`
		IsPrimary bool      `json:"is_primary"`
		Role      string    `json:"role"`
		CreatedAt time.Time `json:"created_at"`
	}

	response := make([]UnitResponse, 0, len(permissions))
	for _, p := range permissions {
		response = append(response, UnitResponse{
			ID:        p.BusinessUnitID,
			Name:      p.BusinessUnit.Name,
			TaxID:     p.BusinessUnit.TaxID,
			IsPrimary: p.BusinessUnit.IsPrimary,
			Role:      p.Role,
			CreatedAt: p.BusinessUnit.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, response)
}

// UpdateBusinessUnit edits name/tax id/primary flag of an owned unit.
func UpdateBusinessUnit(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid business unit ID"})
	}

	var req struct {
		Name      *string `json:"name,omitempty"`
		TaxID     *string `json:"tax_id,omitempty"`
		IsPrimary *bool   `json:"is_primary,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var unit model.BusinessUnit
	if result := database.GetDB().
		Where("id = ? AND owner_id = ?", id, userID).
		First(&unit); result.Error != nil {
		// Owned lookup only: existence of other users' units is not leaked.
		prometheus.RecordTenantResolution("denied")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.TaxID != nil {
		updates["tax_id"] = *req.TaxID
	}
	if req.IsPrimary != nil {
		updates["is_primary"] = *req.IsPrimary
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, unit)
	}

	tx := database.GetDB().Begin()
	if req.IsPrimary != nil && *req.IsPrimary {
		if err := tx.Model(&model.BusinessUnit{}).
			Where("owner_id = ? AND is_primary = ? AND id <> ?", userID, true, unit.ID).
			Update("is_primary", false).Error; err != nil {
			tx.Rollback()
			log.Error("Failed to demote previous primary unit", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	if err := tx.Model(&unit).Updates(updates).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to update business unit", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	return c.JSON(http.StatusOK, unit)
}

// DeleteBusinessUnit removes an owned unit and cascades the delete over its
// dependent ledger rows in one transaction. The export-before-delete rule
// lives at the UI boundary, not here.
func DeleteBusinessUnit(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid business unit ID"})
	}

	var unit model.BusinessUnit
	if result := database.GetDB().
		Where("id = ? AND owner_id = ?", id, userID).
		First(&unit); result.Error != nil {
		prometheus.RecordTenantResolution("denied")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	for _, step := range []error{
		tx.Where("business_unit_id = ?", unit.ID).Delete(&model.FinanceTransaction{}).Error,
		tx.Where("business_unit_id = ?", unit.ID).Delete(&model.Bill{}).Error,
		tx.Where("business_unit_id = ?", unit.ID).Delete(&model.UserPermission{}).Error,
		tx.Delete(&unit).Error,
	} {
		if step != nil {
			tx.Rollback()
			log.Error("Failed to delete business unit", zap.Uint("id", unit.ID), zap.Error(step))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	log.Info("Business unit deleted", zap.Uint("id", unit.ID), zap.Uint("owner_id", userID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Business unit deleted"})
}

// resolveWriteScope resolves the tenant scope for a write request, letting
// a body-supplied reference participate in the precedence order, and
// rejecting the consolidated pseudo-tenant.
func resolveWriteScope(c echo.Context, bodyRef string) (*tenant.Context, error) {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return nil, tenant.ErrAccessDenied
	}

	ref := tenant.RefFromRequest(c, bodyRef)
	bc, err := tenant.Resolve(userID, ref)
	if err != nil {
		return nil, err
	}
	if bc.Consolidated {
		return nil, tenant.ErrAmbiguousBusiness
	}
	return bc, nil
}
