// Package profile owns the persisted profile record keyed by user id and
// the PostgreSQL repository around it.
//
// The repository carries no business logic: all plan transitions are
// expressed as conditional single-statement updates so that independently
// invoked writers (the billing reconciler and the expiry sweeper) cannot
// lose each other's updates. A profile that is renewed between the
// sweeper's read and write keeps its pro plan because the downgrade
// re-checks the end date in the UPDATE itself.
package profile
