package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"finance-service/internal/middleware"
	"finance-service/internal/model"
	"finance-service/internal/tenant"
	"finance-service/pkg/database"
	"finance-service/pkg/logger"
	"finance-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type billRequest struct {
	BusinessID  json.Number     `json:"businessId,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	CategoryID  *uint           `json:"category_id,omitempty"`
	CardID      *uint           `json:"card_id,omitempty"`
	Recurring   bool            `json:"recurring,omitempty"`
}

// ListBills returns the bills of the resolved scope.
func ListBills(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("bill", "list")

	userID := c.Get("user_id").(uint)
	bc, ok := middleware.BusinessContext(c)
	if !ok {
		log.Error("Missing business context")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business context missing"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	query := database.GetDB().
		Scopes(tenant.Scope(bc, userID)).
		Order("due_date ASC, id ASC")
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var bills []model.Bill
	if result := query.Find(&bills); result.Error != nil {
		log.Error("Failed to list bills", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve bills"})
	}

	return c.JSON(http.StatusOK, bills)
}

// CreateBill records a new pending obligation against one concrete unit.
func CreateBill(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("bill", "create")

	var req billRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse bill request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	bc, err := resolveWriteScope(c, req.BusinessID.String())
	if err != nil {
		return middleware.RenderTenantError(c, err)
	}

	if req.Description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description is required"})
	}
	if !req.Amount.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}
	if req.DueDate == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "due date is required"})
	}

	bill := model.Bill{
		UserID:         c.Get("user_id").(uint),
		BusinessUnitID: bc.ID,
		Description:    req.Description,
		Amount:         req.Amount,
		DueDate:        *req.DueDate,
		CategoryID:     req.CategoryID,
		CardID:         req.CardID,
		Recurring:      req.Recurring,
		Status:         model.BillPending,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&bill); result.Error != nil {
		log.Error("Failed to create bill", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "bill creation failed"})
	}

	log.Info("Bill created",
		zap.Uint("id", bill.ID),
		zap.Uint("business_unit_id", bill.BusinessUnitID),
		zap.Time("due_date", bill.DueDate))

	return c.JSON(http.StatusCreated, bill)
}

// UpdateBill edits a bill within the resolved scope.
func UpdateBill(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("bill", "update")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bill ID"})
	}

	var req billRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	bc, err := resolveWriteScope(c, req.BusinessID.String())
	if err != nil {
		return middleware.RenderTenantError(c, err)
	}

	userID := c.Get("user_id").(uint)
	var bill model.Bill
	if result := database.GetDB().
		Scopes(tenant.Scope(bc, userID)).
		First(&bill, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bill not found"})
	}

	updates := map[string]interface{}{}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if !req.Amount.IsZero() {
		if !req.Amount.IsPositive() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
		}
		updates["amount"] = req.Amount
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.CardID != nil {
		updates["card_id"] = *req.CardID
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, bill)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&bill).Updates(updates).Error; err != nil {
		log.Error("Failed to update bill", zap.Uint64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	return c.JSON(http.StatusOK, bill)
}

// PayBill transitions PENDENTE to PAGO. Paying an already-PAGO bill is a
// no-op success.
func PayBill(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("bill", "pay")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bill ID"})
	}

	bc, err := resolveWriteScope(c, "")
	if err != nil {
		return middleware.RenderTenantError(c, err)
	}

	userID := c.Get("user_id").(uint)
	var bill model.Bill
	if result := database.GetDB().
		Scopes(tenant.Scope(bc, userID)).
		First(&bill, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bill not found"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := database.GetDB().
		Model(&model.Bill{}).
		Where("id = ? AND status = ?", bill.ID, model.BillPending).
		Updates(map[string]interface{}{
			"status":  model.BillPaid,
			"paid_at": time.Now(),
		})
	if result.Error != nil {
		log.Error("Failed to pay bill", zap.Uint64("id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment failed"})
	}

	database.GetDB().First(&bill, bill.ID)
	return c.JSON(http.StatusOK, bill)
}

// DeleteBill removes a bill within the resolved scope.
func DeleteBill(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("bill", "delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bill ID"})
	}

	bc, err := resolveWriteScope(c, "")
	if err != nil {
		return middleware.RenderTenantError(c, err)
	}

	userID := c.Get("user_id").(uint)
	var bill model.Bill
	if result := database.GetDB().
		Scopes(tenant.Scope(bc, userID)).
		First(&bill, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bill not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(&bill).Error; err != nil {
		log.Error("Failed to delete bill", zap.Uint64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Bill deleted"})
}

// DueTodayBills lists PENDENTE bills due on the current server-local
// calendar day. Drives the once-per-session client reminder; the snooze
// state lives on the client.
func DueTodayBills(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("bill", "due_today")

	userID := c.Get("user_id").(uint)
	bc, ok := middleware.BusinessContext(c)
	if !ok {
		log.Error("Missing business context")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business context missing"})
	}

	start, end := todayBounds(time.Now())

	defer prometheus.TrackDBOperation("query")(time.Now())
	var bills []model.Bill
	if result := database.GetDB().
		Scopes(tenant.Scope(bc, userID)).
		Where("status = ? AND due_date >= ? AND due_date < ?", model.BillPending, start, end).
		Order("due_date ASC").
		Find(&bills); result.Error != nil {
		log.Error("Failed to query due bills", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve due bills"})
	}

	return c.JSON(http.StatusOK, bills)
}
