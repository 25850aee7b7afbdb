package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"finance-service/internal/middleware"
	"finance-service/internal/model"
	"finance-service/internal/tenant"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBillStartsPending(t *testing.T) {
	db := setupTestDB(t)
	user, unit := seedOwner(t, db, "owner@example.com")

	// Due date is mandatory for bills.
	c, rec := jsonContext(t, http.MethodPost, "/api/bills", map[string]interface{}{
		"description": "Aluguel",
		"amount":      1200,
	}, user.ID)
	require.NoError(t, CreateBill(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	due := time.Now().AddDate(0, 0, 10)
	c, rec = jsonContext(t, http.MethodPost, "/api/bills", map[string]interface{}{
		"description": "Aluguel",
		"amount":      1200,
		"due_date":    due.Format(time.RFC3339),
	}, user.ID)
	require.NoError(t, CreateBill(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored model.Bill
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, model.BillPending, stored.Status)
	assert.Equal(t, unit.ID, stored.BusinessUnitID)
	assert.Nil(t, stored.PaidAt)
}

func TestCreateBillRejectsConsolidatedScope(t *testing.T) {
	db := setupTestDB(t)
	user, _ := seedOwner(t, db, "owner@example.com")

	due := time.Now().AddDate(0, 0, 10)
	c, rec := jsonContext(t, http.MethodPost, "/api/bills", map[string]interface{}{
		"description": "Aluguel",
		"amount":      1200,
		"due_date":    due.Format(time.RFC3339),
		"businessId":  tenant.Consolidated,
	}, user.ID)
	require.NoError(t, CreateBill(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayBillIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user, unit := seedOwner(t, db, "owner@example.com")

	bill := &model.Bill{
		UserID:         user.ID,
		BusinessUnitID: unit.ID,
		Description:    "Energia",
		Amount:         decimal.NewFromFloat(320.45),
		DueDate:        time.Now(),
		Status:         model.BillPending,
	}
	require.NoError(t, db.Create(bill).Error)

	pay := func() *model.Bill {
		c, rec := jsonContext(t, http.MethodPost, "/api/bills/pay", nil, user.ID)
		c.SetParamNames("id")
		c.SetParamValues(strconv.FormatUint(uint64(bill.ID), 10))
		require.NoError(t, PayBill(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var stored model.Bill
		require.NoError(t, db.First(&stored, bill.ID).Error)
		return &stored
	}

	first := pay()
	assert.Equal(t, model.BillPaid, first.Status)
	require.NotNil(t, first.PaidAt)
	assert.WithinDuration(t, time.Now(), *first.PaidAt, time.Minute)

	second := pay()
	assert.Equal(t, model.BillPaid, second.Status)
	require.NotNil(t, second.PaidAt)
	assert.True(t, first.PaidAt.Equal(*second.PaidAt), "paying again must not move paid_at")
}

func TestUpdateBillWithNoFieldsIsANoOp(t *testing.T) {
	db := setupTestDB(t)
	user, unit := seedOwner(t, db, "owner@example.com")

	bill := &model.Bill{
		UserID:         user.ID,
		BusinessUnitID: unit.ID,
		Description:    "Energia",
		Amount:         decimal.NewFromFloat(320.45),
		DueDate:        time.Now(),
		Status:         model.BillPending,
	}
	require.NoError(t, db.Create(bill).Error)

	c, rec := jsonContext(t, http.MethodPut, "/api/bills/1", map[string]interface{}{}, user.ID)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(bill.ID), 10))
	require.NoError(t, UpdateBill(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored model.Bill
	require.NoError(t, db.First(&stored, bill.ID).Error)
	assert.Equal(t, "Energia", stored.Description)
	assert.True(t, stored.Amount.Equal(bill.Amount))
}

func TestPayBillOutsideScopeIsNotFound(t *testing.T) {
	db := setupTestDB(t)
	owner, unit := seedOwner(t, db, "owner@example.com")
	stranger, _ := seedOwner(t, db, "stranger@example.com")

	bill := &model.Bill{
		UserID:         owner.ID,
		BusinessUnitID: unit.ID,
		Description:    "Internet",
		Amount:         decimal.NewFromInt(100),
		DueDate:        time.Now(),
		Status:         model.BillPending,
	}
	require.NoError(t, db.Create(bill).Error)

	c, rec := jsonContext(t, http.MethodPost, "/api/bills/pay", nil, stranger.ID)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(bill.ID), 10))
	require.NoError(t, PayBill(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDueTodayBills(t *testing.T) {
	db := setupTestDB(t)
	user, unit := seedOwner(t, db, "owner@example.com")

	now := time.Now()
	paidAt := now
	for _, bill := range []*model.Bill{
		{UserID: user.ID, BusinessUnitID: unit.ID, Description: "due today", Amount: decimal.NewFromInt(10), DueDate: now, Status: model.BillPending},
		{UserID: user.ID, BusinessUnitID: unit.ID, Description: "due next week", Amount: decimal.NewFromInt(10), DueDate: now.AddDate(0, 0, 7), Status: model.BillPending},
		{UserID: user.ID, BusinessUnitID: unit.ID, Description: "settled", Amount: decimal.NewFromInt(10), DueDate: now, Status: model.BillPaid, PaidAt: &paidAt},
	} {
		require.NoError(t, db.Create(bill).Error)
	}

	c, rec := jsonContext(t, http.MethodGet, "/api/bills/due-today", nil, user.ID)
	require.NoError(t, middleware.RequireBusinessContext(DueTodayBills)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []model.Bill
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "due today", rows[0].Description)
}
