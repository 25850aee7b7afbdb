package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"finance-service/internal/gateway"
	"finance-service/internal/model"
	"finance-service/internal/recon"
	"finance-service/pkg/cryptoutil"
	"finance-service/pkg/database"
	"finance-service/pkg/logger"
	"finance-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var payGateway *gateway.Client

// InitPaymentGateway wires the processor client used by the payment routes.
func InitPaymentGateway(gw *gateway.Client) {
	payGateway = gw
}

// CreatePaymentIntent starts a subscription upgrade: creates the PIX
// request with the processor (or fabricates one in simulation mode) and
// persists the pending payment row. No retry here; the user may retry
// manually on failure.
func CreatePaymentIntent(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	email, _ := c.Get("email").(string)

	var req struct {
		PlanID        uint   `json:"plan_id"`
		PayerName     string `json:"payer_name"`
		PayerDocument string `json:"payer_document"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse payment request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.PlanID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plan_id is required"})
	}

	var plan model.Plan
	if result := database.GetDB().
		Where("id = ? AND active = ?", req.PlanID, true).
		First(&plan); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "plan not found"})
	}
	if plan.IsFree() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "free plan requires no payment"})
	}

	mode := "live"
	if payGateway.Simulated() {
		mode = "simulation"
	}

	intent, err := payGateway.CreatePixPayment(c.Request().Context(), &gateway.PixRequest{
		Amount:        plan.Price,
		Description:   "Upgrade to plan " + plan.Name,
		PayerEmail:    email,
		PayerName:     req.PayerName,
		PayerDocument: req.PayerDocument,
	})
	if err != nil {
		log.Error("Payment intent creation failed", zap.Uint("plan_id", plan.ID), zap.Error(err))
		if errors.Is(err, gateway.ErrPaymentCreationFailed) {
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment creation failed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment creation failed"})
	}

	encryptedDocument := ""
	if req.PayerDocument != "" {
		encryptedDocument, err = cryptoutil.Encrypt(req.PayerDocument)
		if err != nil {
			log.Error("Failed to encrypt payer document", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment creation failed"})
		}
	}

	status := intent.Status
	if status == "" {
		status = model.PaymentPending
	}

	payment := model.Payment{
		UserID:        userID,
		ExternalID:    intent.ExternalID,
		Amount:        plan.Price,
		Status:        status,
		PlanID:        plan.ID,
		QRCode:        intent.QRCode,
		QRCodeBase64:  intent.QRCodeBase64,
		PayerName:     req.PayerName,
		PayerDocument: encryptedDocument,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&payment); result.Error != nil {
		log.Error("Failed to persist payment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment creation failed"})
	}

	// The creation response is itself a reconciliation channel: a payment
	// settled synchronously is already terminal, so no webhook or poll will
	// ever transition it out of pending. The once-per-payment marker keeps
	// this safe against any concurrent delivery.
	if payment.Status == model.PaymentApproved {
		if err := recon.UpgradeUser(&payment); err != nil {
			log.Error("Failed to apply settlement from creation response",
				zap.Uint("payment_id", payment.ID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment creation failed"})
		}
		prometheus.RecordReconciliation("create", model.PaymentApproved)
	}

	prometheus.RecordPaymentIntent(mode)
	log.Info("Payment intent created",
		zap.Uint("payment_id", payment.ID),
		zap.String("external_id", payment.ExternalID),
		zap.String("mode", mode))

	return c.JSON(http.StatusCreated, echo.Map{
		"payment": map[string]interface{}{
			"id":             payment.ID,
			"external_id":    payment.ExternalID,
			"amount":         payment.Amount,
			"status":         payment.Status,
			"plan_id":        payment.PlanID,
			"qr_code":        payment.QRCode,
			"qr_code_base64": payment.QRCodeBase64,
		},
		"mode": mode,
	})
}

// GetPaymentStatus returns the current status of a payment, reconciling a
// still-pending one against the processor before replying.
func GetPaymentStatus(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment ID"})
	}

	var payment model.Payment
	if result := database.GetDB().
		Where("id = ? AND user_id = ?", id, userID).
		First(&payment); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
	}

	status, err := recon.Reconcile(c.Request().Context(), payGateway, &payment, "poll")
	if err != nil {
		log.Error("Reconciliation failed", zap.Uint("payment_id", payment.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconciliation failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":      payment.ID,
		"status":  status,
		"plan_id": payment.PlanID,
	})
}

// SyncLatestPending reconciles the principal's most recent pending payment,
// for clients that lost track of the payment id after a page reload.
func SyncLatestPending(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	payment, err := recon.LatestPending(userID)
	if err != nil {
		if errors.Is(err, recon.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending payment"})
		}
		log.Error("Failed to find pending payment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sync failed"})
	}

	status, err := recon.Reconcile(c.Request().Context(), payGateway, payment, "sync")
	if err != nil {
		log.Error("Reconciliation failed", zap.Uint("payment_id", payment.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sync failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":      payment.ID,
		"status":  status,
		"plan_id": payment.PlanID,
	})
}

// SimulateSettlement settles a simulation-mode payment locally, routed
// through the identical upgrade side effect as a real settlement. Rejected
// while a live processor credential is configured.
func SimulateSettlement(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment ID"})
	}

	var payment model.Payment
	if result := database.GetDB().
		Where("id = ? AND user_id = ?", id, userID).
		First(&payment); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
	}

	status, err := recon.MockSettle(payGateway, &payment)
	if err != nil {
		if errors.Is(err, recon.ErrLiveMode) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "simulated settlement is disabled in live mode"})
		}
		log.Error("Simulated settlement failed", zap.Uint("payment_id", payment.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "settlement failed"})
	}

	log.Info("Payment settled in simulation mode", zap.Uint("payment_id", payment.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"id":     payment.ID,
		"status": status,
	})
}

// webhookBody is the push notification shape: either query parameters
// (id + topic) or a JSON body carrying type/action and data.id.
type webhookBody struct {
	Type   string `json:"type,omitempty"`
	Topic  string `json:"topic,omitempty"`
	Action string `json:"action,omitempty"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// PaymentWebhook receives processor push notifications. The embedded
// status is never trusted: the current status is re-fetched from the
// processor. The endpoint always answers 200 so the processor never
// enters a retry storm; internal failures are logged only.
func PaymentWebhook(c echo.Context) error {
	log := logger.FromContext(c)

	externalID := c.QueryParam("id")
	if externalID == "" {
		externalID = c.QueryParam("data.id")
	}
	topic := c.QueryParam("topic")
	if topic == "" {
		topic = c.QueryParam("type")
	}

	if externalID == "" {
		var body webhookBody
		if err := c.Bind(&body); err == nil {
			externalID = body.Data.ID.String()
			if topic == "" {
				topic = body.Type
				if topic == "" {
					topic = body.Topic
				}
			}
		}
	}

	if topic != "" && topic != "payment" {
		log.Debug("Ignoring webhook topic", zap.String("topic", topic))
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}
	if externalID == "" {
		log.Warn("Webhook without payment id")
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}

	payment, err := recon.ByExternalID(externalID)
	if err != nil {
		log.Warn("Webhook for unknown payment", zap.String("external_id", externalID))
		return c.JSON(http.StatusOK, echo.Map{"status": "received"})
	}

	if _, err := recon.Reconcile(c.Request().Context(), payGateway, payment, "webhook"); err != nil {
		log.Error("Webhook reconciliation failed",
			zap.Uint("payment_id", payment.ID),
			zap.Error(err))
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "received"})
}
