package entitlements

import (
	"strings"

	"github.com/MartinHaas/LokalMarkt/app/models"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// IsEntitlingStatus reports whether a subscription status grants the
// premium listing. past_due keeps entitlement until the subscription is
// actually canceled.
func IsEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing, models.SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// ForStatus maps a subscription status to the effective plan.
func ForStatus(status string) Plan {
	if IsEntitlingStatus(status) {
		return PlanPremium
	}
	return PlanFree
}
