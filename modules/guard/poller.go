package guard

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultPollInterval is how often a mounted session re-checks its
// subscription status.
const DefaultPollInterval = 5 * time.Minute

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) PollerOption {
	if d <= 0 {
		panic("guard: poll interval must be > 0")
	}
	return func(p *Poller) { p.interval = d }
}

// Poller periodically re-evaluates one user's subscription status for the
// lifetime of a session. It is bound to the context passed to Run: when the
// session tears down, the timer stops and the callback is never invoked
// again, so a poll that fires during teardown cannot update dead state.
type Poller struct {
	guard    *Guard
	userID   uuid.UUID
	interval time.Duration
	onUpdate func(Decision)
	refresh  chan struct{}
}

// NewPoller creates a poller for one user. onUpdate receives every
// evaluated decision, including the immediate one on start.
func NewPoller(g *Guard, userID uuid.UUID, onUpdate func(Decision), opts ...PollerOption) *Poller {
	if g == nil {
		panic("guard: guard is required")
	}
	if onUpdate == nil {
		panic("guard: update callback is required")
	}
	p := &Poller{
		guard:    g,
		userID:   userID,
		interval: DefaultPollInterval,
		onUpdate: onUpdate,
		refresh:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Refresh requests an immediate re-check, used after a mutating action
// (e.g. returning from checkout) instead of waiting for the next tick.
// Non-blocking; a pending refresh coalesces with later ones.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Run evaluates once immediately, then on every tick or refresh request,
// until the context is cancelled. Blocks until teardown.
func (p *Poller) Run(ctx context.Context) {
	p.check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx)
		case <-p.refresh:
			p.check(ctx)
		}
	}
}

func (p *Poller) check(ctx context.Context) {
	decision := p.guard.Check(ctx, p.userID)

	// The fetch may have raced teardown; never deliver after cancellation.
	select {
	case <-ctx.Done():
		return
	default:
	}
	p.onUpdate(decision)
}
