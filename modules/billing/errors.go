package billing

import "errors"

var (
	// ErrInvalidPayload marks a malformed webhook body or one missing
	// required fields. Never retried: the provider gets a 4xx back.
	ErrInvalidPayload = errors.New("invalid webhook payload")

	// ErrUnmappedExternalID marks an event whose external id does not
	// resolve to a known user. The event is rejected, not silently dropped,
	// so it surfaces for manual reconciliation.
	ErrUnmappedExternalID = errors.New("external id does not map to a known user")

	// ErrStoreFailure marks an underlying profile store failure. Surfaced
	// as a 5xx so the provider retries the delivery.
	ErrStoreFailure = errors.New("profile store failure")

	ErrSweepFailed              = errors.New("subscription sweep failed")
	ErrInvalidPlanConfiguration = errors.New("invalid billing plan configuration")
	ErrFailedToLoadPlans        = errors.New("failed to load billing plan catalog")
)
