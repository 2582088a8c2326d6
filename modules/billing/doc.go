// Package billing translates payment-provider webhook events into profile
// state changes and runs the scheduled expiry sweep.
//
// The provider delivers invoice lifecycle events at least once, so every
// mutation is idempotent: a replayed "invoice.paid" is detected by invoice
// id (a fast Redis pre-check plus a conditional guard in the profile update
// itself) and leaves the subscription end date untouched. The sweeper
// downgrades pro profiles whose term ended more than the grace window ago
// with a conditional batch update, making it safe to run repeatedly and
// concurrently with webhook handling.
package billing
