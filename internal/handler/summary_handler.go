package handler

import (
	"net/http"
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

// Trailing window of the cash-flow aggregate: current month plus five prior.
const cashFlowMonths = 6

// Label for expense rows without a category.
const uncategorizedLabel = "Sem categoria"

// MonthlyCashFlow is one calendar month of the cash-flow aggregate.
type MonthlyCashFlow struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// CashFlow returns a fixed six-month trailing window, one row per calendar
// month, PAID rows only. Months with no activity still appear with zero
// sums: the calendar spine is generated here, not by a group-by that would
// skip empty months.
func CashFlow(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("summary", "cash_flow")

	userID := c.Get("user_id").(uint)
	bc, ok := middleware.BusinessContext(c)
	if !ok {
		log.Error("Missing business context")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business context missing"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	now := time.Now()
	rows := make([]MonthlyCashFlow, 0, cashFlowMonths)
	for i := cashFlowMonths - 1; i >= 0; i-- {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		var sums struct {
			Income  decimal.Decimal
			Expense decimal.Decimal
		}
		result := database.GetDB().
			Model(&model.FinanceTransaction{}).
			Scopes(tenant.Scope(bc, userID)).
			Where("status = ? AND value_date >= ? AND value_date < ?", model.TransactionPaid, start, end).
			Select("COALESCE(SUM(CASE WHEN direction = 'INCOME' THEN amount ELSE 0 END), 0) AS income, " +
				"COALESCE(SUM(CASE WHEN direction = 'EXPENSE' THEN amount ELSE 0 END), 0) AS expense").
			Scan(&sums)
		if result.Error != nil {
			log.Error("Failed to aggregate cash flow", zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to aggregate cash flow"})
		}

		rows = append(rows, MonthlyCashFlow{
			Month:   start.Format("2006-01"),
			Income:  sums.Income,
			Expense: sums.Expense,
		})
	}

	return c.JSON(http.StatusOK, rows)
}

// CategoryBreakdown returns summed EXPENSE amounts grouped by category
// name; uncategorized rows bucket under a sentinel label.
func CategoryBreakdown(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("summary", "categories")

	userID := c.Get("user_id").(uint)
	bc, ok := middleware.BusinessContext(c)
	if !ok {
		log.Error("Missing business context")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business context missing"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	type categoryRow struct {
		Category string          `json:"category"`
		Total    decimal.Decimal `json:"total"`
	}

	var rows []categoryRow
	result := database.GetDB().
		Model(&model.FinanceTransaction{}).
		Scopes(tenant.Scope(bc, userID)).
		Joins("LEFT JOIN finance_categories ON finance_categories.id = finance_transactions.category_id").
		Where("finance_transactions.direction = ?", model.DirectionExpense).
		Select("COALESCE(finance_categories.name, '"+uncategorizedLabel+"') AS category, SUM(finance_transactions.amount) AS total").
		Group("COALESCE(finance_categories.name, '" + uncategorizedLabel + "')").
		Order("total DESC").
		Scan(&rows)
	if result.Error != nil {
		log.Error("Failed to aggregate categories", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to aggregate categories"})
	}

	if rows == nil {
		rows = []categoryRow{}
	}
	return c.JSON(http.StatusOK, rows)
}

// Overview returns total PAID income, expense and the balance for the
// resolved scope.
func Overview(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLedgerOperation("summary", "overview")

	userID := c.Get("user_id").(uint)
	bc, ok := middleware.BusinessContext(c)
	if !ok {
		log.Error("Missing business context")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business context missing"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var sums struct {
		Income  decimal.Decimal
		Expense decimal.Decimal
	}
	result := database.GetDB().
		Model(&model.FinanceTransaction{}).
		Scopes(tenant.Scope(bc, userID)).
		Where("status = ?", model.TransactionPaid).
		Select("COALESCE(SUM(CASE WHEN direction = 'INCOME' THEN amount ELSE 0 END), 0) AS income, " +
			"COALESCE(SUM(CASE WHEN direction = 'EXPENSE' THEN amount ELSE 0 END), 0) AS expense").
		Scan(&sums)
	if result.Error != nil {
		log.Error("Failed to aggregate overview", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to aggregate overview"})
	}

	var pendingBills int64
	database.GetDB().
		Model(&model.Bill{}).
		Scopes(tenant.Scope(bc, userID)).
		Where("status = ?", model.BillPending).
		Count(&pendingBills)

	return c.JSON(http.StatusOK, echo.Map{
		"income":        sums.Income,
		"expense":       sums.Expense,
		"balance":       sums.Income.Sub(sums.Expense),
		"pending_bills": pendingBills,
	})
}
