package guard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tashkeelhq/tashkeel/modules/profile"
	"github.com/tashkeelhq/tashkeel/pkg/logger"
)

// UserIDResolver extracts the authenticated user id from the request
// context, decoupling the guard from the auth middleware.
type UserIDResolver func(ctx context.Context) (uuid.UUID, bool)

// UsageConsumer spends one unit of the free-tier daily quota.
type UsageConsumer interface {
	ConsumeDailyUsage(ctx context.Context, userID uuid.UUID, now time.Time, limit int) (int, error)
}

const warningHeader = "X-Subscription-Warning"

// RequirePro protects routes that need an entitled subscription. Admins
// bypass unconditionally; blocked users get 402 with the upgrade path;
// grace-period and expiring-soon users pass through with a warning header.
func RequirePro(g *Guard, resolve UserIDResolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolve(r.Context())
			if !ok {
				writeGuardJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication required"})
				return
			}

			decision := g.Check(r.Context(), userID)
			switch decision.State {
			case StateAdminBypass, StateNormal:
			case StateGracePeriodWarning:
				w.Header().Set(warningHeader, fmt.Sprintf(
					"subscription expired %d days ago; %d grace days remaining",
					decision.DaysExpired, decision.GraceDaysRemaining))
			case StateExpiringSoonWarning:
				w.Header().Set(warningHeader, fmt.Sprintf(
					"subscription expires in %d days", decision.Status.DaysUntilExpiry))
			default:
				log.InfoContext(r.Context(), "pro access blocked",
					logger.UserID(userID), slog.String("state", string(decision.State)))
				writeGuardJSON(w, http.StatusPaymentRequired, map[string]any{
					"error":       "pro subscription required",
					"upgrade_url": "/pro",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AllowWithDailyLimit protects routes available to every tier: entitled
// subscribers pass unlimited, free users spend one unit of their daily
// quota per request. Uncertainty fails closed.
func AllowWithDailyLimit(g *Guard, usage UsageConsumer, limit int, resolve UserIDResolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolve(r.Context())
			if !ok {
				writeGuardJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication required"})
				return
			}

			decision := g.Check(r.Context(), userID)
			if decision.Allowed() {
				next.ServeHTTP(w, r)
				return
			}

			used, err := usage.ConsumeDailyUsage(r.Context(), userID, time.Now().UTC(), limit)
			if err != nil {
				switch {
				case errors.Is(err, profile.ErrDailyLimitExceeded):
					writeGuardJSON(w, http.StatusTooManyRequests, map[string]any{
						"error":       "daily free limit reached",
						"daily_limit": limit,
						"upgrade_url": "/pro",
					})
				case errors.Is(err, profile.ErrNotFound):
					writeGuardJSON(w, http.StatusForbidden, map[string]any{"error": "profile not found"})
				default:
					log.ErrorContext(r.Context(), "usage guard failure", logger.Error(err), logger.UserID(userID))
					writeGuardJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
				}
				return
			}

			w.Header().Set("X-Daily-Usage", fmt.Sprintf("%d/%d", used, limit))
			next.ServeHTTP(w, r)
		})
	}
}

// StatusHandler returns the evaluated subscription decision for the
// signed-in user. This is the read path the web client polls.
func StatusHandler(g *Guard, resolve UserIDResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := resolve(r.Context())
		if !ok {
			writeGuardJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication required"})
			return
		}
		writeGuardJSON(w, http.StatusOK, g.Check(r.Context(), userID))
	}
}

func writeGuardJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
