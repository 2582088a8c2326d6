package guard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tashkeelhq/tashkeel/modules/profile"
	"github.com/tashkeelhq/tashkeel/pkg/entitlement"
)

// DisplayState is one of the mutually exclusive states a gated view can be in.
type DisplayState string

const (
	// StateLoading means the profile is not resolved yet; nothing
	// actionable is rendered and no access decision is made.
	StateLoading DisplayState = "loading"

	// StateAdminBypass grants full access with no warnings and
	// short-circuits every other check.
	StateAdminBypass DisplayState = "admin_bypass"

	// StateBlocked denies access and points at the upgrade path.
	StateBlocked DisplayState = "blocked"

	// StateGracePeriodWarning keeps access open while prominently
	// prompting renewal with days-expired and grace days remaining.
	StateGracePeriodWarning DisplayState = "grace_period_warning"

	// StateExpiringSoonWarning keeps access open with a non-blocking
	// renewal reminder.
	StateExpiringSoonWarning DisplayState = "expiring_soon_warning"

	// StateNormal is full access, no warnings.
	StateNormal DisplayState = "normal"
)

// expiringSoonDays is the window before expiry that triggers the reminder.
const expiringSoonDays = 7

// Decision is the evaluated display state plus the numbers the warnings need.
type Decision struct {
	State              DisplayState         `json:"state"`
	PlanType           entitlement.PlanType `json:"plan_type,omitempty"`
	Status             entitlement.Status   `json:"status"`
	DaysExpired        int                  `json:"days_expired,omitempty"`
	GraceDaysRemaining int                  `json:"grace_days_remaining,omitempty"`
}

// Allowed reports whether protected content may be rendered in this state.
func (d Decision) Allowed() bool {
	switch d.State {
	case StateAdminBypass, StateGracePeriodWarning, StateExpiringSoonWarning, StateNormal:
		return true
	}
	return false
}

// Decide maps a profile snapshot to a display state at the given time.
// A nil profile means "not resolved yet" and yields StateLoading.
func Decide(p *profile.Profile, now time.Time, graceDays int) Decision {
	if p == nil {
		return Decision{State: StateLoading}
	}

	if p.PlanType == entitlement.PlanAdmin {
		return Decision{State: StateAdminBypass, PlanType: p.PlanType}
	}

	status := entitlement.EvaluateWithGrace(p.PlanType, p.SubscriptionEndDate, p.PaymentStatus, now, graceDays)
	decision := Decision{PlanType: p.PlanType, Status: status}

	switch {
	case !status.IsActive && !status.IsInGracePeriod:
		decision.State = StateBlocked
	case status.IsInGracePeriod:
		decision.State = StateGracePeriodWarning
		decision.DaysExpired = -status.DaysUntilExpiry
		decision.GraceDaysRemaining = status.GraceDaysRemaining(graceDays)
	case status.DaysUntilExpiry > 0 && status.DaysUntilExpiry <= expiringSoonDays:
		decision.State = StateExpiringSoonWarning
	default:
		decision.State = StateNormal
	}
	return decision
}

// ProfileSource reads the latest profile snapshot for a user. A just-written
// update may not be visible yet; callers refresh after actions they initiate.
type ProfileSource interface {
	Get(ctx context.Context, userID uuid.UUID) (*profile.Profile, error)
}

// Option configures a Guard.
type Option func(*Guard)

// WithGraceDays overrides the grace window.
func WithGraceDays(days int) Option {
	return func(g *Guard) { g.graceDays = days }
}

// WithGuardClock overrides the time source, for tests.
func WithGuardClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// Guard evaluates access decisions against the latest profile state.
type Guard struct {
	profiles  ProfileSource
	graceDays int
	now       func() time.Time
}

// New creates a Guard. Panics on a nil profile source to fail fast during
// initialization.
func New(profiles ProfileSource, opts ...Option) *Guard {
	if profiles == nil {
		panic("guard: profile source is required")
	}
	g := &Guard{
		profiles:  profiles,
		graceDays: entitlement.DefaultGraceDays,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check fetches the user's profile and decides the display state. Any fetch
// failure, including "not found", fails closed to StateBlocked.
func (g *Guard) Check(ctx context.Context, userID uuid.UUID) Decision {
	p, err := g.profiles.Get(ctx, userID)
	if err != nil {
		return Decision{State: StateBlocked}
	}
	return Decide(p, g.now(), g.graceDays)
}
