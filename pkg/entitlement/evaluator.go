package entitlement

import (
	"math"
	"time"
)

// DefaultGraceDays is the window after expiry during which pro access is
// retained while the user is prompted to renew.
const DefaultGraceDays = 7

// Status is the evaluated subscription state of a profile at a given time.
type Status struct {
	// IsActive is true when the profile is pro and the billing relationship
	// is not known to be broken (payment status active or unknown).
	IsActive bool `json:"is_active"`

	// IsExpired is true when a subscription end date is set and has passed.
	IsExpired bool `json:"is_expired"`

	// IsInGracePeriod is true for pro profiles whose subscription expired
	// at most GraceDays ago.
	IsInGracePeriod bool `json:"is_in_grace_period"`

	// DaysUntilExpiry counts whole days to the subscription end date,
	// rounded away from zero: 0.1 days left reports 1, 0.1 days past
	// reports -1. Zero when no end date is set.
	DaysUntilExpiry int `json:"days_until_expiry"`

	// SubscriptionEndDate echoes the evaluated end date for display.
	SubscriptionEndDate *time.Time `json:"subscription_end_date,omitempty"`

	// PaymentStatus echoes the profile's payment status for display.
	PaymentStatus PaymentStatus `json:"payment_status"`
}

// GraceDaysRemaining returns how many days of the grace window are left.
// Zero when the profile is not in the grace period.
func (s Status) GraceDaysRemaining(graceDays int) int {
	if !s.IsInGracePeriod {
		return 0
	}
	remaining := graceDays - int(math.Abs(float64(s.DaysUntilExpiry)))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Evaluate computes the subscription status for a profile snapshot at the
// given time using the default grace window.
func Evaluate(plan PlanType, endDate *time.Time, payment PaymentStatus, now time.Time) Status {
	return EvaluateWithGrace(plan, endDate, payment, now, DefaultGraceDays)
}

// EvaluateWithGrace is Evaluate with an explicit grace window in days.
// Total over its domain: no errors, no side effects.
func EvaluateWithGrace(plan PlanType, endDate *time.Time, payment PaymentStatus, now time.Time, graceDays int) Status {
	status := Status{
		IsActive:            plan == PlanPro && (payment == PaymentActive || payment == PaymentUnknown || payment == ""),
		SubscriptionEndDate: endDate,
		PaymentStatus:       payment,
	}

	// No end date means no active paid term: not expired, not in grace,
	// regardless of plan type.
	if endDate == nil {
		return status
	}

	status.DaysUntilExpiry = daysUntil(*endDate, now)
	status.IsExpired = now.After(*endDate)
	status.IsInGracePeriod = plan == PlanPro && status.IsExpired && status.DaysUntilExpiry > -graceDays

	return status
}

// daysUntil counts whole days between now and the end date, rounding away
// from zero so partial days are always reported: a subscription expiring in
// 0.1 days has 1 day left, one expired 0.1 days ago is -1 days.
func daysUntil(end, now time.Time) int {
	days := end.Sub(now).Hours() / 24
	if days >= 0 {
		return int(math.Ceil(days))
	}
	return -int(math.Ceil(-days))
}
