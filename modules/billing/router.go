package billing

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tashkeelhq/tashkeel/pkg/logger"
)

// Config holds the billing module configuration.
type Config struct {
	// CallbackToken is the shared secret the provider sends in the
	// x-callback-token header. Empty disables the check.
	CallbackToken string `env:"XENDIT_CALLBACK_TOKEN"`

	// PlansPath points to the YAML plan catalog. Empty uses the defaults.
	PlansPath string `env:"BILLING_PLANS_PATH"`

	// ExtendFromEndDate switches early renewals to extend from the current
	// end date instead of from the payment time.
	ExtendFromEndDate bool `env:"BILLING_EXTEND_FROM_END_DATE" envDefault:"false"`

	// DedupTTL is how long processed invoice ids are remembered in Redis.
	DedupTTL time.Duration `env:"BILLING_INVOICE_DEDUP_TTL" envDefault:"2160h"`

	// MaxBodyBytes bounds the webhook request body.
	MaxBodyBytes int64 `env:"BILLING_MAX_BODY_BYTES" envDefault:"1048576"`
}

// Router mounts the provider-facing webhook endpoint and the scheduler-facing
// sweep endpoint.
func Router(rec *Reconciler, sweeper *Sweeper, cfg Config, log *slog.Logger) chi.Router {
	h := &handlers{rec: rec, sweeper: sweeper, cfg: cfg, log: log}

	r := chi.NewRouter()
	r.Post("/webhooks/xendit", h.handleWebhook)
	r.Post("/internal/subscriptions/sweep", h.handleSweep)
	return r
}

type handlers struct {
	rec     *Reconciler
	sweeper *Sweeper
	cfg     Config
	log     *slog.Logger
}

type successResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type sweepResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ExpiredUsers     int    `json:"expired_users"`
	GracePeriodUsers int    `json:"grace_period_users"`
}

func (h *handlers) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cfg.CallbackToken != "" {
		token := r.Header.Get("x-callback-token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.CallbackToken)) != 1 {
			h.log.WarnContext(ctx, "webhook rejected: invalid callback token")
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid webhook token"})
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}

	event, err := ParseEvent(body)
	if err != nil {
		h.log.WarnContext(ctx, "webhook rejected: malformed payload", logger.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	h.log.InfoContext(ctx, "webhook received",
		logger.EventType(string(event.Kind)),
		slog.String("invoice_id", event.InvoiceID))

	if err := h.rec.Apply(ctx, event); err != nil {
		switch {
		case errors.Is(err, ErrUnmappedExternalID):
			// Rejected rather than acknowledged so the delivery surfaces in
			// the provider dashboard for manual reconciliation.
			h.log.ErrorContext(ctx, "webhook event not applied", logger.Error(err),
				slog.String("invoice_id", event.InvoiceID))
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			h.log.ErrorContext(ctx, "webhook handling failed", logger.Error(err),
				slog.String("invoice_id", event.InvoiceID))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *handlers) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.sweeper.Run(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "sweep failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	message := "No expired subscriptions found"
	if result.Downgraded > 0 {
		message = fmt.Sprintf("Processed %d expired subscriptions", result.Downgraded)
	}

	writeJSON(w, http.StatusOK, sweepResponse{
		Success:          true,
		Message:          message,
		ExpiredUsers:     result.Downgraded,
		GracePeriodUsers: result.InGrace,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
