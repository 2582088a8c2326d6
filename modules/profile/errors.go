package profile

import "errors"

var (
	ErrNotFound           = errors.New("profile not found")
	ErrDailyLimitExceeded = errors.New("daily usage limit exceeded")
	ErrFailedToGet        = errors.New("failed to get profile")
	ErrFailedToUpdate     = errors.New("failed to update profile")
	ErrFailedToSweep      = errors.New("failed to sweep expired subscriptions")
)
