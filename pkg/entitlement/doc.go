// Package entitlement computes a user's subscription status from their
// profile snapshot and an explicit point in time.
//
// The evaluator is a pure function: it never touches the database, the
// clock, or the network, which keeps every time-based transition testable
// with fixed timestamps. Callers (HTTP guards, the client-side poller, the
// expiry sweeper) pass in "now" and get back a Status they can act on.
//
// Example:
//
//	status := entitlement.Evaluate(p.PlanType, p.SubscriptionEndDate, p.PaymentStatus, time.Now().UTC())
//	if status.IsActive || status.IsInGracePeriod {
//	    // allow pro feature
//	}
package entitlement
