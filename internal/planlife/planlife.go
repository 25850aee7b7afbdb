// Package planlife computes a principal's effective plan: manual
// assignment, trial window override, and the inline auto-downgrade of
// expired paid plans.
package planlife

import (
	"errors"
	"time"

	"finance-service/internal/model"
	"finance-service/internal/settings"
	"finance-service/pkg/config"
	"finance-service/pkg/database"
	"finance-service/prometheus"

	"gorm.io/gorm"
)

// Two days past the trial window the "your trial ended" banner stops
// showing; it never gates access.
const trialGrace = 48 * time.Hour

var trialDefaults config.TrialConfig

// ErrNoFreePlan is returned when the catalog holds no zero-price tier to
// downgrade to.
var ErrNoFreePlan = errors.New("no free plan configured")

// Initialize stores the environment-level trial defaults. System settings
// override them at resolution time.
func Initialize(cfg *config.Config) {
	trialDefaults = cfg.Trial
}

// Effective is the plan a principal acts under for one request. Plan may
// differ from the stored assignment while a trial override is active; the
// stored assignment is never mutated by the override.
type Effective struct {
	Plan         *model.Plan `json:"plan"`
	PlanID       uint        `json:"plan_id"`
	InTrial      bool        `json:"is_in_trial"`
	TrialExpired bool        `json:"trial_expired"`
}

// ResolveEffective applies the expiry side effect against the stored plan,
// then computes the effective plan with the trial override. Invoked on
// every authenticated request; user is updated in place to reflect any
// downgrade.
func ResolveEffective(user *model.User) (*Effective, error) {
	// Expiry check runs against the stored plan before any trial override:
	// the override never touches the stored assignment.
	if err := autoDowngrade(user); err != nil {
		return nil, err
	}

	stored, err := storedPlan(user)
	if err != nil {
		return nil, err
	}

	eff := &Effective{Plan: stored, PlanID: stored.ID}

	if !stored.IsFree() {
		return eff, nil
	}

	enabled := settings.GetBool(model.SettingTrialEnabled, trialDefaults.Enabled)
	days := settings.GetInt(model.SettingTrialDays, trialDefaults.Days)
	if !enabled || days <= 0 {
		return eff, nil
	}

	window := time.Duration(days) * 24 * time.Hour
	elapsed := time.Since(user.CreatedAt)

	switch {
	case elapsed < window:
		top, err := highestPaidPlan()
		if err != nil {
			return nil, err
		}
		if top != nil {
			eff.Plan = top
			eff.PlanID = top.ID
			eff.InTrial = true
		}
	case elapsed < window+trialGrace:
		eff.TrialExpired = true
	}

	return eff, nil
}

// FreePlan returns the zero-price tier.
func FreePlan() (*model.Plan, error) {
	var plan model.Plan
	result := database.GetDB().
		Where("active = ? AND price = 0", true).
		Order("id ASC").
		First(&plan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNoFreePlan
		}
		return nil, result.Error
	}
	return &plan, nil
}

// autoDowngrade reassigns an expired paid plan to the free tier. The update
// is conditional on the expiry still being set and past, so concurrent
// requests observing the same expired state downgrade exactly once.
func autoDowngrade(user *model.User) error {
	if user.PlanExpiresAt == nil || user.PlanExpiresAt.After(time.Now()) {
		return nil
	}

	free, err := FreePlan()
	if err != nil {
		return err
	}

	result := database.GetDB().
		Model(&model.User{}).
		Where("id = ? AND plan_expires_at IS NOT NULL AND plan_expires_at <= ?", user.ID, time.Now()).
		Updates(map[string]interface{}{
			"plan_id":             free.ID,
			"subscription_status": model.SubscriptionExpired,
			"plan_expires_at":     nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		prometheus.PlanDowngradeCounter.Inc()
	}

	// Another request may have won the conditional update; either way the
	// stored state is now the free tier.
	user.PlanID = &free.ID
	user.SubscriptionStatus = model.SubscriptionExpired
	user.PlanExpiresAt = nil
	return nil
}

func storedPlan(user *model.User) (*model.Plan, error) {
	if user.PlanID == nil {
		return FreePlan()
	}
	var plan model.Plan
	if result := database.GetDB().First(&plan, *user.PlanID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return FreePlan()
		}
		return nil, result.Error
	}
	return &plan, nil
}

// highestPaidPlan returns the most expensive active tier, or nil when the
// catalog has no paid tier.
func highestPaidPlan() (*model.Plan, error) {
	var plan model.Plan
	result := database.GetDB().
		Where("active = ? AND price > 0", true).
		Order("price DESC").
		First(&plan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &plan, nil
}
