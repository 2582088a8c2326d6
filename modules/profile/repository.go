package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tashkeelhq/tashkeel/pkg/entitlement"
	"github.com/tashkeelhq/tashkeel/pkg/pg"
)

// Repository persists profiles in PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a profile repository backed by the given pool.
// Panics on a nil pool to fail fast during initialization.
func NewRepository(db *pgxpool.Pool) *Repository {
	if db == nil {
		panic("profile: pgx pool is required")
	}
	return &Repository{db: db}
}

const selectProfile = `
SELECT user_id, display_name, plan_type, payment_status, subscription_end_date,
       last_invoice_id, daily_usage, last_usage_reset, created_at, updated_at
FROM profiles
WHERE user_id = $1`

// Get retrieves a profile by user id. Returns ErrNotFound when no profile exists.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.db.QueryRow(ctx, selectProfile, userID).Scan(
		&p.UserID, &p.DisplayName, &p.PlanType, &p.PaymentStatus,
		&p.SubscriptionEndDate, &p.LastInvoiceID,
		&p.DailyUsage, &p.LastUsageReset, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrFailedToGet, err)
	}
	return &p, nil
}

// ApplyPaidInvoice promotes a profile to pro and sets a new subscription end
// date, conditionally on the invoice id not having been applied before.
// Returns false without error when the invoice was already applied, so
// replayed webhook deliveries never double-extend the term.
//
// The new term is termDays from now. When extendFromEnd is true and the
// current term has not expired yet, the term is added to the current end
// date instead, preserving remaining paid days on early renewal.
func (r *Repository) ApplyPaidInvoice(ctx context.Context, userID uuid.UUID, invoiceID string, now time.Time, termDays int, extendFromEnd bool) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET plan_type = $6,
		    payment_status = $7,
		    subscription_end_date = (CASE
		        WHEN $4 AND subscription_end_date IS NOT NULL AND subscription_end_date > $3 THEN subscription_end_date
		        ELSE $3::timestamptz
		    END) + make_interval(days => $5),
		    last_invoice_id = $2,
		    updated_at = $3
		WHERE user_id = $1
		  AND last_invoice_id IS DISTINCT FROM $2`,
		userID, invoiceID, now, extendFromEnd, termDays,
		entitlement.PlanPro, entitlement.PaymentActive,
	)
	if err != nil {
		return false, errors.Join(ErrFailedToUpdate, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// No row updated: either a replayed invoice or an unknown user.
	if _, err := r.Get(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

// SetPaymentStatus records a billing status change without touching the plan
// type or end date, leaving the profile eligible for grace-period evaluation.
func (r *Repository) SetPaymentStatus(ctx context.Context, userID uuid.UUID, status entitlement.PaymentStatus, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET payment_status = $2, updated_at = $3
		WHERE user_id = $1`,
		userID, status, now,
	)
	if err != nil {
		return errors.Join(ErrFailedToUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SweepExpired downgrades every pro profile whose subscription end date is
// older than the cutoff in a single conditional update and returns the
// affected user ids. The end-date check runs at write time, so a profile
// renewed concurrently is never downgraded. Re-running with no newly
// expired rows is a no-op.
func (r *Repository) SweepExpired(ctx context.Context, cutoff, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE profiles
		SET plan_type = $3, payment_status = $4, updated_at = $2
		WHERE plan_type = $5
		  AND subscription_end_date IS NOT NULL
		  AND subscription_end_date < $1
		RETURNING user_id`,
		cutoff, now,
		entitlement.PlanFree, entitlement.PaymentExpired, entitlement.PlanPro,
	)
	if err != nil {
		return nil, errors.Join(ErrFailedToSweep, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Join(ErrFailedToSweep, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrFailedToSweep, err)
	}
	return ids, nil
}

// CountInGrace counts pro profiles whose subscription already ended but that
// have not been swept yet. Used for sweep observability only.
func (r *Repository) CountInGrace(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT count(*)
		FROM profiles
		WHERE plan_type = $2
		  AND subscription_end_date IS NOT NULL
		  AND subscription_end_date < $1`,
		now, entitlement.PlanPro,
	).Scan(&count)
	if err != nil {
		return 0, errors.Join(ErrFailedToGet, err)
	}
	return count, nil
}

// Downgrade explicitly reverts a profile to the free plan. This and the
// sweeper are the only paths that move a profile from pro to free.
func (r *Repository) Downgrade(ctx context.Context, userID uuid.UUID, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET plan_type = $2, updated_at = $3
		WHERE user_id = $1`,
		userID, entitlement.PlanFree, now,
	)
	if err != nil {
		return errors.Join(ErrFailedToUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeDailyUsage increments the free-tier usage counter, resetting it
// when the last reset happened before the start of the current day. The
// reset and the limit check happen in the same statement, so concurrent
// requests cannot exceed the limit. Returns the usage after increment, or
// ErrDailyLimitExceeded once the limit is reached.
func (r *Repository) ConsumeDailyUsage(ctx context.Context, userID uuid.UUID, now time.Time, limit int) (int, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var usage int
	err := r.db.QueryRow(ctx, `
		UPDATE profiles
		SET daily_usage = CASE WHEN last_usage_reset < $2 THEN 1 ELSE daily_usage + 1 END,
		    last_usage_reset = CASE WHEN last_usage_reset < $2 THEN $3 ELSE last_usage_reset END,
		    updated_at = $3
		WHERE user_id = $1
		  AND (last_usage_reset < $2 OR daily_usage < $4)
		RETURNING daily_usage`,
		userID, dayStart, now, limit,
	).Scan(&usage)
	if err == nil {
		return usage, nil
	}
	if !pg.IsNotFoundError(err) {
		return 0, errors.Join(ErrFailedToUpdate, err)
	}

	// No row updated: either the limit is spent or the user is unknown.
	if _, err := r.Get(ctx, userID); err != nil {
		return 0, err
	}
	return 0, ErrDailyLimitExceeded
}
