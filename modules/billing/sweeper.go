package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tashkeelhq/tashkeel/pkg/logger"
)

// SweepStore is the slice of the profile repository the sweeper needs.
type SweepStore interface {
	SweepExpired(ctx context.Context, cutoff, now time.Time) ([]uuid.UUID, error)
	CountInGrace(ctx context.Context, now time.Time) (int, error)
}

// SweepResult reports one sweep pass for observability.
type SweepResult struct {
	Downgraded int // profiles moved pro -> free this pass
	InGrace    int // expired pro profiles still inside the grace window
}

// SweeperOption configures optional sweeper behavior.
type SweeperOption func(*Sweeper)

// WithSweeperClock overrides the time source, for tests.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.now = now }
}

// Sweeper is the scheduled reconciliation pass that downgrades pro profiles
// whose subscription ended more than the grace window ago.
type Sweeper struct {
	store     SweepStore
	graceDays int
	log       *slog.Logger
	now       func() time.Time
}

// NewSweeper creates a sweeper. Panics on nil required dependencies to fail
// fast during initialization.
func NewSweeper(store SweepStore, catalog Catalog, log *slog.Logger, opts ...SweeperOption) *Sweeper {
	if store == nil {
		panic("billing: sweep store is required")
	}
	if log == nil {
		panic("billing: logger is required")
	}

	s := &Sweeper{
		store:     store,
		graceDays: catalog.Pro.GraceDays,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one sweep pass. The downgrade is a single conditional batch
// update, so running it again immediately, or concurrently with webhook
// handling, downgrades nothing it should not.
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	now := s.now()
	cutoff := now.AddDate(0, 0, -s.graceDays)

	downgraded, err := s.store.SweepExpired(ctx, cutoff, now)
	if err != nil {
		return SweepResult{}, errors.Join(ErrSweepFailed, err)
	}

	for _, userID := range downgraded {
		s.log.InfoContext(ctx, "subscription downgraded to free", logger.UserID(userID))
	}

	result := SweepResult{Downgraded: len(downgraded)}

	// Grace-period count is observability only; a failure here does not
	// fail the sweep.
	inGrace, err := s.store.CountInGrace(ctx, now)
	if err != nil {
		s.log.WarnContext(ctx, "failed to count grace-period profiles", logger.Error(err))
		return result, nil
	}
	result.InGrace = inGrace

	s.log.InfoContext(ctx, "sweep completed",
		slog.Int("expired_users", result.Downgraded),
		slog.Int("grace_period_users", result.InGrace))
	return result, nil
}
