package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"finance-service/internal/gateway"
	"finance-service/internal/model"
	"finance-service/pkg/config"
	"finance-service/pkg/cryptoutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func initSimulatedGateway(t *testing.T) {
	t.Helper()
	require.NoError(t, cryptoutil.Initialize("0123456789abcdef0123456789abcdef"))
	InitPaymentGateway(gateway.NewClient(&config.PaymentConfig{}))
}

func seedPaidPlan(t *testing.T, db *gorm.DB) *model.Plan {
	t.Helper()
	free := &model.Plan{Name: "Gratuito", Price: decimal.Zero, Active: true}
	require.NoError(t, db.Create(free).Error)
	paid := &model.Plan{Name: "Profissional", Price: decimal.NewFromFloat(39.90), Active: true}
	require.NoError(t, db.Create(paid).Error)
	return paid
}

func TestCreatePaymentIntentSimulated(t *testing.T) {
	db := setupTestDB(t)
	initSimulatedGateway(t)
	user, _ := seedOwner(t, db, "payer@example.com")
	plan := seedPaidPlan(t, db)

	c, rec := jsonContext(t, http.MethodPost, "/api/payments", map[string]interface{}{
		"plan_id":        plan.ID,
		"payer_name":     "Maria",
		"payer_document": "12345678901",
	}, user.ID)
	c.Set("email", "payer@example.com")

	require.NoError(t, CreatePaymentIntent(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "simulation", body["mode"])

	var payment model.Payment
	require.NoError(t, db.First(&payment).Error)
	assert.True(t, strings.HasPrefix(payment.ExternalID, gateway.MockPrefix))
	assert.Equal(t, model.PaymentPending, payment.Status)
	assert.Equal(t, plan.ID, payment.PlanID)
	assert.NotEmpty(t, payment.QRCode)
	assert.True(t, payment.Amount.Equal(plan.Price))

	// The payer document is stored encrypted, never in the clear.
	assert.NotEqual(t, "12345678901", payment.PayerDocument)
	decrypted, err := cryptoutil.Decrypt(payment.PayerDocument)
	require.NoError(t, err)
	assert.Equal(t, "12345678901", decrypted)
}

func TestCreatePaymentIntentSettledAtCreation(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, cryptoutil.Initialize("0123456789abcdef0123456789abcdef"))
	user, _ := seedOwner(t, db, "payer@example.com")
	plan := seedPaidPlan(t, db)

	// Some processors settle synchronously and report approved right in the
	// creation response, without any later webhook for the transition.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 777,
			"status": "approved",
			"point_of_interaction": {
				"transaction_data": {"qr_code": "00020126...", "qr_code_base64": "aGVsbG8="}
			}
		}`))
	}))
	t.Cleanup(srv.Close)
	InitPaymentGateway(gateway.NewClient(&config.PaymentConfig{
		BaseURL:     srv.URL,
		AccessToken: "TEST-token",
		Timeout:     2 * time.Second,
	}))

	c, rec := jsonContext(t, http.MethodPost, "/api/payments", map[string]interface{}{
		"plan_id": plan.ID,
	}, user.ID)
	c.Set("email", "payer@example.com")

	require.NoError(t, CreatePaymentIntent(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var payment model.Payment
	require.NoError(t, db.First(&payment).Error)
	assert.Equal(t, model.PaymentApproved, payment.Status)
	require.NotNil(t, payment.PlanAppliedAt)

	var storedUser model.User
	require.NoError(t, db.First(&storedUser, user.ID).Error)
	require.NotNil(t, storedUser.PlanID)
	assert.Equal(t, plan.ID, *storedUser.PlanID)
	assert.Equal(t, model.SubscriptionActive, storedUser.SubscriptionStatus)
	require.NotNil(t, storedUser.PlanExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *storedUser.PlanExpiresAt, time.Minute)
}

func TestCreatePaymentIntentRejectsFreePlan(t *testing.T) {
	db := setupTestDB(t)
	initSimulatedGateway(t)
	user, _ := seedOwner(t, db, "payer@example.com")
	seedPaidPlan(t, db)

	var free model.Plan
	require.NoError(t, db.Where("price = 0").First(&free).Error)

	c, rec := jsonContext(t, http.MethodPost, "/api/payments", map[string]interface{}{
		"plan_id": free.ID,
	}, user.ID)
	c.Set("email", "payer@example.com")

	require.NoError(t, CreatePaymentIntent(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePaymentIntentUnknownPlan(t *testing.T) {
	db := setupTestDB(t)
	initSimulatedGateway(t)
	user, _ := seedOwner(t, db, "payer@example.com")

	c, rec := jsonContext(t, http.MethodPost, "/api/payments", map[string]interface{}{
		"plan_id": 42,
	}, user.ID)
	c.Set("email", "payer@example.com")

	require.NoError(t, CreatePaymentIntent(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSimulateSettlementUpgradesUser(t *testing.T) {
	db := setupTestDB(t)
	initSimulatedGateway(t)
	user, _ := seedOwner(t, db, "payer@example.com")
	plan := seedPaidPlan(t, db)

	payment := &model.Payment{
		UserID:     user.ID,
		ExternalID: gateway.MockPrefix + "abc",
		Amount:     plan.Price,
		Status:     model.PaymentPending,
		PlanID:     plan.ID,
	}
	require.NoError(t, db.Create(payment).Error)

	c, rec := jsonContext(t, http.MethodPost, "/api/payments/simulate", nil, user.ID)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(payment.ID), 10))

	require.NoError(t, SimulateSettlement(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, model.PaymentApproved, body["status"])

	var storedUser model.User
	require.NoError(t, db.First(&storedUser, user.ID).Error)
	require.NotNil(t, storedUser.PlanID)
	assert.Equal(t, plan.ID, *storedUser.PlanID)
	assert.Equal(t, model.SubscriptionActive, storedUser.SubscriptionStatus)
}

func TestSimulateSettlementOtherUsersPayment(t *testing.T) {
	db := setupTestDB(t)
	initSimulatedGateway(t)
	owner, _ := seedOwner(t, db, "payer@example.com")
	stranger, _ := seedOwner(t, db, "stranger@example.com")
	plan := seedPaidPlan(t, db)

	payment := &model.Payment{
		UserID:     owner.ID,
		ExternalID: gateway.MockPrefix + "abc",
		Amount:     plan.Price,
		Status:     model.PaymentPending,
		PlanID:     plan.ID,
	}
	require.NoError(t, db.Create(payment).Error)

	c, rec := jsonContext(t, http.MethodPost, "/api/payments/simulate", nil, stranger.ID)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(payment.ID), 10))

	require.NoError(t, SimulateSettlement(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPaymentStatusScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	initSimulatedGateway(t)
	owner, _ := seedOwner(t, db, "payer@example.com")
	stranger, _ := seedOwner(t, db, "stranger@example.com")
	plan := seedPaidPlan(t, db)

	payment := &model.Payment{
		UserID:     owner.ID,
		ExternalID: gateway.MockPrefix + "abc",
		Amount:     plan.Price,
		Status:     model.PaymentPending,
		PlanID:     plan.ID,
	}
	require.NoError(t, db.Create(payment).Error)

	get := func(userID uint) *int {
		c, rec := jsonContext(t, http.MethodGet, "/api/payments/status", nil, userID)
		c.SetParamNames("id")
		c.SetParamValues(strconv.FormatUint(uint64(payment.ID), 10))
		require.NoError(t, GetPaymentStatus(c))
		return &rec.Code
	}

	assert.Equal(t, http.StatusOK, *get(owner.ID))
	assert.Equal(t, http.StatusNotFound, *get(stranger.ID))
}

func TestSyncLatestPendingWithoutPayments(t *testing.T) {
	db := setupTestDB(t)
	initSimulatedGateway(t)
	user, _ := seedOwner(t, db, "payer@example.com")

	c, rec := jsonContext(t, http.MethodPost, "/api/payments/sync", nil, user.ID)
	require.NoError(t, SyncLatestPending(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentWebhookAlwaysAnswers200(t *testing.T) {
	db := setupTestDB(t)
	initSimulatedGateway(t)
	user, _ := seedOwner(t, db, "payer@example.com")
	plan := seedPaidPlan(t, db)

	payment := &model.Payment{
		UserID:     user.ID,
		ExternalID: "987654321",
		Amount:     plan.Price,
		Status:     model.PaymentPending,
		PlanID:     plan.ID,
	}
	require.NoError(t, db.Create(payment).Error)

	// Unknown payment id.
	c, rec := jsonContext(t, http.MethodPost, "/webhooks/payment?id=000&topic=payment", nil, 0)
	require.NoError(t, PaymentWebhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unrelated topic.
	c, rec = jsonContext(t, http.MethodPost, "/webhooks/payment?id=987654321&topic=merchant_order", nil, 0)
	require.NoError(t, PaymentWebhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Empty notification.
	c, rec = jsonContext(t, http.MethodPost, "/webhooks/payment", nil, 0)
	require.NoError(t, PaymentWebhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Known payment via JSON body.
	c, rec = jsonContext(t, http.MethodPost, "/webhooks/payment", map[string]interface{}{
		"type": "payment",
		"data": map[string]interface{}{"id": "987654321"},
	}, 0)
	require.NoError(t, PaymentWebhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
