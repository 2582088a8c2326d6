package annotate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tashkeelhq/tashkeel/pkg/logger"
)

// maxTextLength bounds a single annotation request.
const maxTextLength = 10000

// Handler serves annotation requests. Entitlement and quota checks are
// applied by the guard middleware wrapping this handler.
func Handler(annotator Annotator, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Text == "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": ErrEmptyText.Error()})
			return
		}
		if len([]rune(req.Text)) > maxTextLength {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": ErrTextTooLong.Error()})
			return
		}

		result, err := annotator.Annotate(r.Context(), req.Text)
		if err != nil {
			log.ErrorContext(r.Context(), "annotation failed", logger.Error(err))
			status := http.StatusBadGateway
			if errors.Is(err, ErrEmptyText) {
				status = http.StatusUnprocessableEntity
			}
			writeJSON(w, status, map[string]string{"error": "annotation failed"})
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
