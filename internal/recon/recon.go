// Package recon owns the payment lifecycle from pending to terminal state.
// Webhook, status poll, latest-pending sync and simulated settlement all
// converge on the same transition logic, which is idempotent against
// repeated delivery.
package recon

import (
	"context"
	"errors"
	"time"

	"finance-service/internal/gateway"
	"finance-service/internal/model"
	"finance-service/pkg/database"
	"finance-service/pkg/logger"
	"finance-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrPaymentNotFound is returned when no local payment row matches.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrLiveMode rejects simulated settlement while a real credential is
	// configured.
	ErrLiveMode = errors.New("simulated settlement requires simulation mode")
)

// Reconcile fetches the remote status of a pending payment, applies the
// transition with a compare-and-swap, and runs the plan upgrade when the
// payment settled. The returned status is what the caller should report.
//
// A processor fetch failure degrades to the last known local status so a
// transient outage never blocks a user from seeing their payment.
func Reconcile(ctx context.Context, gw *gateway.Client, payment *model.Payment, trigger string) (string, error) {
	log := logger.GetLogger()

	if payment.Status != model.PaymentPending {
		prometheus.RecordReconciliation(trigger, "terminal")
		return payment.Status, nil
	}

	remote, err := gw.GetPaymentStatus(ctx, payment.ExternalID)
	if err != nil {
		log.Warn("Processor status fetch failed, keeping last known status",
			zap.Uint("payment_id", payment.ID),
			zap.String("external_id", payment.ExternalID),
			zap.Error(err))
		prometheus.RecordReconciliation(trigger, "unreachable")
		return payment.Status, nil
	}

	if remote == payment.Status {
		prometheus.RecordReconciliation(trigger, "unchanged")
		return remote, nil
	}

	return applyTransition(payment, remote, trigger)
}

// ByExternalID loads the local payment row for a processor id.
func ByExternalID(externalID string) (*model.Payment, error) {
	var payment model.Payment
	result := database.GetDB().Where("external_id = ?", externalID).First(&payment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, result.Error
	}
	return &payment, nil
}

// LatestPending returns the most recent pending payment for a user, used by
// clients that lost track of a payment id after a page reload.
func LatestPending(userID uint) (*model.Payment, error) {
	var payment model.Payment
	result := database.GetDB().
		Where("user_id = ? AND status = ?", userID, model.PaymentPending).
		Order("created_at DESC").
		First(&payment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, result.Error
	}
	return &payment, nil
}

// MockSettle transitions a simulation-mode payment straight to approved,
// routed through the identical upgrade side effect.
func MockSettle(gw *gateway.Client, payment *model.Payment) (string, error) {
	if !gw.Simulated() {
		return payment.Status, ErrLiveMode
	}
	return applyTransition(payment, model.PaymentApproved, "simulate")
}

// applyTransition writes the new status with a compare-and-swap. Two
// concurrent deliveries for the same payment can both observe pending and
// both fetch approved; only the one whose conditional update changed a row
// runs the upgrade side effect. Losing the swap is success, the winning
// status is reported.
func applyTransition(payment *model.Payment, newStatus, trigger string) (string, error) {
	result := database.GetDB().
		Model(&model.Payment{}).
		Where("id = ? AND status <> ?", payment.ID, newStatus).
		Update("status", newStatus)
	if result.Error != nil {
		return payment.Status, result.Error
	}
	if result.RowsAffected == 0 {
		// Stale transition: a concurrent reconciliation won.
		prometheus.RecordReconciliation(trigger, "stale")
		return newStatus, nil
	}

	payment.Status = newStatus
	prometheus.RecordReconciliation(trigger, newStatus)

	if newStatus == model.PaymentApproved {
		if err := UpgradeUser(payment); err != nil {
			return newStatus, err
		}
	}

	return newStatus, nil
}

// Paid subscription period granted per settled payment.
const paidPeriodDays = 30

// UpgradeUser applies the plan upgrade for a settled payment exactly once.
// The once-per-payment marker is claimed with a conditional update, so
// repeated calls for the same payment never double-extend the expiry.
// A still-future expiry is extended, not replaced: paying again before
// expiry accumulates remaining time.
func UpgradeUser(payment *model.Payment) error {
	log := logger.GetLogger()
	now := time.Now()

	claim := database.GetDB().
		Model(&model.Payment{}).
		Where("id = ? AND plan_applied_at IS NULL", payment.ID).
		Update("plan_applied_at", now)
	if claim.Error != nil {
		return claim.Error
	}
	if claim.RowsAffected == 0 {
		return nil
	}

	var user model.User
	if result := database.GetDB().First(&user, payment.UserID); result.Error != nil {
		return result.Error
	}

	base := now
	if user.PlanExpiresAt != nil && user.PlanExpiresAt.After(now) {
		base = *user.PlanExpiresAt
	}
	expiresAt := base.AddDate(0, 0, paidPeriodDays)

	result := database.GetDB().
		Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"plan_id":             payment.PlanID,
			"subscription_status": model.SubscriptionActive,
			"plan_expires_at":     expiresAt,
		})
	if result.Error != nil {
		return result.Error
	}

	prometheus.PlanUpgradeCounter.Inc()
	log.Info("Plan upgraded from settled payment",
		zap.Uint("user_id", user.ID),
		zap.Uint("payment_id", payment.ID),
		zap.Uint("plan_id", payment.PlanID),
		zap.Time("plan_expires_at", expiresAt))
	return nil
}
