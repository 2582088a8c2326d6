package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tashkeelhq/tashkeel/modules/profile"
	"github.com/tashkeelhq/tashkeel/pkg/entitlement"
	"github.com/tashkeelhq/tashkeel/pkg/logger"
)

// ProfileStore is the slice of the profile repository the reconciler needs.
type ProfileStore interface {
	ApplyPaidInvoice(ctx context.Context, userID uuid.UUID, invoiceID string, now time.Time, termDays int, extendFromEnd bool) (bool, error)
	SetPaymentStatus(ctx context.Context, userID uuid.UUID, status entitlement.PaymentStatus, now time.Time) error
}

// DedupStore remembers processed invoice ids.
type DedupStore interface {
	Seen(ctx context.Context, invoiceID string) (bool, error)
	Mark(ctx context.Context, invoiceID string) error
}

// ReconcilerOption configures optional reconciler behavior.
type ReconcilerOption func(*Reconciler)

// WithDedupStore enables the invoice-id pre-check.
func WithDedupStore(d DedupStore) ReconcilerOption {
	return func(r *Reconciler) { r.dedup = d }
}

// WithExtendFromEndDate makes early renewals extend from the current end
// date instead of from now, so remaining paid days are not forfeited.
// Off by default: the provider contract extends from the payment time.
func WithExtendFromEndDate() ReconcilerOption {
	return func(r *Reconciler) { r.extendFromEnd = true }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

// Reconciler maps payment-provider events to idempotent profile mutations.
type Reconciler struct {
	profiles      ProfileStore
	dedup         DedupStore
	catalog       Catalog
	log           *slog.Logger
	now           func() time.Time
	extendFromEnd bool
}

// NewReconciler creates a reconciler. Panics on nil required dependencies
// to fail fast during initialization.
func NewReconciler(profiles ProfileStore, catalog Catalog, log *slog.Logger, opts ...ReconcilerOption) *Reconciler {
	if profiles == nil {
		panic("billing: profile store is required")
	}
	if log == nil {
		panic("billing: logger is required")
	}

	r := &Reconciler{
		profiles: profiles,
		catalog:  catalog,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply performs exactly one profile write for a successfully handled event
// and none on validation or mapping failure. Unrecognized events are no-ops.
func (r *Reconciler) Apply(ctx context.Context, ev Event) error {
	if ev.Kind == EventUnrecognized {
		r.log.DebugContext(ctx, "ignoring unrecognized webhook event")
		return nil
	}

	userID, err := uuid.Parse(ev.ExternalID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnmappedExternalID, ev.ExternalID)
	}

	switch ev.Kind {
	case EventInvoicePaid:
		return r.applyPaid(ctx, userID, ev)
	case EventInvoiceExpired:
		return r.setPaymentStatus(ctx, userID, ev, entitlement.PaymentExpired)
	case EventInvoiceFailed:
		return r.setPaymentStatus(ctx, userID, ev, entitlement.PaymentFailed)
	}
	return nil
}

// applyPaid promotes the profile to pro with a fresh term. The Redis
// pre-check skips known replays cheaply; the conditional update in the
// store is the authoritative guard, and the invoice is marked processed
// only after the write succeeds so a failed write stays retryable.
func (r *Reconciler) applyPaid(ctx context.Context, userID uuid.UUID, ev Event) error {
	if r.dedup != nil {
		seen, err := r.dedup.Seen(ctx, ev.InvoiceID)
		if err != nil {
			// Dedup is an optimization; the store-level guard still holds.
			r.log.WarnContext(ctx, "invoice dedup check failed, falling through to store guard",
				logger.Error(err), slog.String("invoice_id", ev.InvoiceID))
		} else if seen {
			r.log.InfoContext(ctx, "skipping replayed invoice",
				slog.String("invoice_id", ev.InvoiceID), logger.UserID(userID))
			return nil
		}
	}

	now := r.now()
	applied, err := r.profiles.ApplyPaidInvoice(ctx, userID, ev.InvoiceID, now, r.catalog.Pro.TermDays, r.extendFromEnd)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrUnmappedExternalID, ev.ExternalID)
		}
		return errors.Join(ErrStoreFailure, err)
	}

	if !applied {
		r.log.InfoContext(ctx, "invoice already applied, subscription unchanged",
			slog.String("invoice_id", ev.InvoiceID), logger.UserID(userID))
		return nil
	}

	if r.dedup != nil {
		if err := r.dedup.Mark(ctx, ev.InvoiceID); err != nil {
			r.log.WarnContext(ctx, "failed to mark invoice as processed",
				logger.Error(err), slog.String("invoice_id", ev.InvoiceID))
		}
	}

	r.log.InfoContext(ctx, "subscription activated",
		logger.UserID(userID),
		slog.String("invoice_id", ev.InvoiceID),
		slog.String("payer_email", ev.PayerEmail),
		slog.Time("subscription_end_date", now.AddDate(0, 0, r.catalog.Pro.TermDays)))
	return nil
}

// setPaymentStatus records a billing status flip without touching the plan
// type, leaving pro profiles eligible for grace-period evaluation.
func (r *Reconciler) setPaymentStatus(ctx context.Context, userID uuid.UUID, ev Event, status entitlement.PaymentStatus) error {
	if err := r.profiles.SetPaymentStatus(ctx, userID, status, r.now()); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrUnmappedExternalID, ev.ExternalID)
		}
		return errors.Join(ErrStoreFailure, err)
	}

	r.log.InfoContext(ctx, "payment status updated",
		logger.UserID(userID),
		slog.String("invoice_id", ev.InvoiceID),
		slog.String("payment_status", string(status)))
	return nil
}
