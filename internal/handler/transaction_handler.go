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

// transactionRequest is the write payload for transactions. BusinessID
// participates in tenant resolution after the header and before the query
// parameter.
type transactionRequest struct {
	BusinessID    json.Number     `json:"businessId,omitempty"`
	Direction     string          `json:"direction"`
	Context       string          `json:"context,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	ValueDate     *time.Time      `json:"value_date,omitempty"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	CategoryID    *uint           `json:"category_id,omitempty"`
	CardID        *uint           `json:"card_id,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Recurring     bool            `json:"recurring,omitempty"`
	Subscription  bool            `json:"subscription,omitempty"`
}

// ListTransactions returns the transactions of the resolved scope. A
// consolidated scope yields the union over every visible unit.
func ListTransactions(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("transaction", "list")

	userID := c.Get("user_id").(uint)
	bc, ok := middleware.BusinessContext(c)
	if !ok {
		log.Error("Missing business context")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business context missing"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	query := database.GetDB().
		Scopes(tenant.Scope(bc, userID)).
		Order("value_date DESC, id DESC")

	if direction := c.QueryParam("direction"); direction != "" {
		query = query.Where("direction = ?", direction)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var transactions []model.FinanceTransaction
	if result := query.Find(&transactions); result.Error != nil {
		log.Error("Failed to list transactions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve transactions"})
	}

	return c.JSON(http.StatusOK, transactions)
}

// CreateTransaction writes a ledger entry against one concrete unit.
// Boleto entries are created PENDING and must carry a due date; card
// references are dropped unless the payment method is Credit Card.
func CreateTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("transaction", "create")

	var req transactionRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse transaction request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	bc, err := resolveWriteScope(c, req.BusinessID.String())
	if err != nil {
		return middleware.RenderTenantError(c, err)
	}

	if req.Direction != model.DirectionIncome && req.Direction != model.DirectionExpense {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "direction must be INCOME or EXPENSE"})
	}
	if !req.Amount.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}

	status := model.TransactionPaid
	if req.PaymentMethod == model.MethodBoleto {
		if req.DueDate == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "boleto transactions require a due date"})
		}
		status = model.TransactionPending
	}

	cardID := req.CardID
	if req.PaymentMethod != model.MethodCreditCard {
		cardID = nil
	}

	valueDate := time.Now()
	if req.ValueDate != nil {
		valueDate = *req.ValueDate
	}

	targetContext := req.Context
	if targetContext == "" {
		targetContext = model.ContextBusiness
	}

	transaction := model.FinanceTransaction{
		UserID:         c.Get("user_id").(uint),
		BusinessUnitID: bc.ID,
		Direction:      req.Direction,
		Context:        targetContext,
		Amount:         req.Amount,
		Description:    req.Description,
		ValueDate:      valueDate,
		DueDate:        req.DueDate,
		CategoryID:     req.CategoryID,
		CardID:         cardID,
		PaymentMethod:  req.PaymentMethod,
		Recurring:      req.Recurring,
		Subscription:   req.Subscription,
		Status:         status,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&transaction); result.Error != nil {
		log.Error("Failed to create transaction", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction creation failed"})
	}

	log.Info("Transaction created",
		zap.Uint("id", transaction.ID),
		zap.Uint("business_unit_id", transaction.BusinessUnitID),
		zap.String("direction", transaction.Direction),
		zap.String("status", transaction.Status))

	return c.JSON(http.StatusCreated, transaction)
}

// UpdateTransaction edits a ledger entry within the resolved scope.
func UpdateTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("transaction", "update")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction ID"})
	}

	var req transactionRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse transaction request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	bc, err := resolveWriteScope(c, req.BusinessID.String())
	if err != nil {
		return middleware.RenderTenantError(c, err)
	}

	userID := c.Get("user_id").(uint)
	var transaction model.FinanceTransaction
	if result := database.GetDB().
		Scopes(tenant.Scope(bc, userID)).
		First(&transaction, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
	}

	updates := map[string]interface{}{}
	if req.Direction != "" {
		if req.Direction != model.DirectionIncome && req.Direction != model.DirectionExpense {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "direction must be INCOME or EXPENSE"})
		}
		updates["direction"] = req.Direction
	}
	if !req.Amount.IsZero() {
		if !req.Amount.IsPositive() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
		}
		updates["amount"] = req.Amount
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.ValueDate != nil {
		updates["value_date"] = *req.ValueDate
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.Context != "" {
		updates["context"] = req.Context
	}
	if req.PaymentMethod != "" {
		updates["payment_method"] = req.PaymentMethod
		if req.PaymentMethod != model.MethodCreditCard {
			updates["card_id"] = nil
		} else if req.CardID != nil {
			updates["card_id"] = *req.CardID
		}
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, transaction)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&transaction).Updates(updates).Error; err != nil {
		log.Error("Failed to update transaction", zap.Uint64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	return c.JSON(http.StatusOK, transaction)
}

// ConfirmTransaction transitions PENDING to PAID and resets the value date
// to now. Confirming an already-PAID entry is a no-op success.
func ConfirmTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("transaction", "confirm")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction ID"})
	}

	bc, err := resolveWriteScope(c, "")
	if err != nil {
		return middleware.RenderTenantError(c, err)
	}

	userID := c.Get("user_id").(uint)
	var transaction model.FinanceTransaction
	if result := database.GetDB().
		Scopes(tenant.Scope(bc, userID)).
		First(&transaction, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	// Conditional update keeps the transition idempotent under concurrent
	// confirmations; zero rows affected means it was already PAID.
	result := database.GetDB().
		Model(&model.FinanceTransaction{}).
		Where("id = ? AND status = ?", transaction.ID, model.TransactionPending).
		Updates(map[string]interface{}{
			"status":     model.TransactionPaid,
			"value_date": time.Now(),
		})
	if result.Error != nil {
		log.Error("Failed to confirm transaction", zap.Uint64("id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation failed"})
	}

	database.GetDB().First(&transaction, transaction.ID)
	return c.JSON(http.StatusOK, transaction)
}

// DeleteTransaction removes a ledger entry within the resolved scope.
func DeleteTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("transaction", "delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction ID"})
	}

	bc, err := resolveWriteScope(c, "")
	if err != nil {
		return middleware.RenderTenantError(c, err)
	}

	userID := c.Get("user_id").(uint)
	var transaction model.FinanceTransaction
	if result := database.GetDB().
		Scopes(tenant.Scope(bc, userID)).
		First(&transaction, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(&transaction).Error; err != nil {
		log.Error("Failed to delete transaction", zap.Uint64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Transaction deleted"})
}

// DueTodayTransactions lists PENDING transactions whose due date falls on
// the current server-local calendar day. Bills have their own due-today
// query on their own route.
func DueTodayTransactions(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("transaction", "due_today")

	userID := c.Get("user_id").(uint)
	bc, ok := middleware.BusinessContext(c)
	if !ok {
		log.Error("Missing business context")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business context missing"})
	}

	start, end := todayBounds(time.Now())

	defer prometheus.TrackDBOperation("query")(time.Now())
	var transactions []model.FinanceTransaction
	if result := database.GetDB().
		Scopes(tenant.Scope(bc, userID)).
		Where("status = ? AND due_date >= ? AND due_date < ?", model.TransactionPending, start, end).
		Order("due_date ASC").
		Find(&transactions); result.Error != nil {
		log.Error("Failed to query due transactions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve due transactions"})
	}

	return c.JSON(http.StatusOK, transactions)
}

// todayBounds returns the half-open interval covering the server-local
// calendar day of t.
func todayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
