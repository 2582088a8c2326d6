package profile

import (
	"time"

	"github.com/google/uuid"

	"github.com/tashkeelhq/tashkeel/pkg/entitlement"
)

// Profile is the per-user record backing entitlement decisions.
// Created alongside identity registration; never deleted here.
type Profile struct {
	UserID        uuid.UUID
	DisplayName   string
	PlanType      entitlement.PlanType
	PaymentStatus entitlement.PaymentStatus

	// SubscriptionEndDate is nil while no paid term has been recorded.
	SubscriptionEndDate *time.Time

	// LastInvoiceID is the provider invoice id of the last applied payment.
	// Replayed webhook deliveries of the same invoice are no-ops.
	LastInvoiceID *string

	// Free-tier rate limiting counters.
	DailyUsage     int
	LastUsageReset time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status evaluates the profile's subscription status at the given time.
func (p *Profile) Status(now time.Time) entitlement.Status {
	return entitlement.Evaluate(p.PlanType, p.SubscriptionEndDate, p.PaymentStatus, now)
}

// IsAdmin reports whether the profile bypasses all gating.
func (p *Profile) IsAdmin() bool {
	return p.PlanType == entitlement.PlanAdmin
}
