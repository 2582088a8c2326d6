package entitlement

// PlanType is the entitlement tier of a profile.
type PlanType string

const (
	PlanFree  PlanType = "free"
	PlanPro   PlanType = "pro"
	PlanAdmin PlanType = "admin" // bypasses all gating unconditionally
)

// Valid reports whether the plan type is one of the known tiers.
func (p PlanType) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanAdmin:
		return true
	}
	return false
}

// PaymentStatus is the last known state of the billing relationship.
// It is informational and may lag plan_type (e.g. "expired" while the
// profile is still pro during the grace period). Gating decisions are
// driven by plan type and subscription end date, not by this field alone.
type PaymentStatus string

const (
	PaymentUnknown PaymentStatus = "unknown"
	PaymentActive  PaymentStatus = "active"
	PaymentExpired PaymentStatus = "expired"
	PaymentFailed  PaymentStatus = "failed"
)

// Valid reports whether the payment status is one of the known states.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnknown, PaymentActive, PaymentExpired, PaymentFailed:
		return true
	}
	return false
}
