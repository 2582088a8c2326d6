package billing_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tashkeelhq/tashkeel/modules/billing"
	"github.com/tashkeelhq/tashkeel/pkg/entitlement"
)

func newTestRouter(t *testing.T, store *fakeStore, cfg billing.Config) http.Handler {
	t.Helper()
	catalog := billing.DefaultCatalog()
	log := discardLogger()
	rec := billing.NewReconciler(store, catalog, log, billing.WithClock(fixedClock))
	sweeper := billing.NewSweeper(store, catalog, log, billing.WithSweeperClock(fixedClock))
	return billing.Router(rec, sweeper, cfg, log)
}

func postWebhook(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/xendit", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestWebhookEndpoint(t *testing.T) {
	t.Parallel()

	cfg := billing.Config{MaxBodyBytes: 1 << 20}

	t.Run("handles a paid invoice", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := newFakeStore()
		store.add(userID, fakeProfile{plan: entitlement.PlanFree})
		h := newTestRouter(t, store, cfg)

		body := `{"event":"invoice.paid","id":"inv-1","external_id":"` + userID.String() + `","payer_email":"x@y.com"}`
		rr := postWebhook(t, h, body, nil)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true}`, rr.Body.String())
		assert.Equal(t, entitlement.PlanPro, store.get(userID).plan)
	})

	t.Run("rejects a bad callback token", func(t *testing.T) {
		t.Parallel()
		secured := cfg
		secured.CallbackToken = "shared-secret"
		h := newTestRouter(t, newFakeStore(), secured)

		rr := postWebhook(t, h, `{"event":"invoice.paid","id":"i","external_id":"u"}`,
			map[string]string{"x-callback-token": "wrong"})

		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid webhook token")
	})

	t.Run("accepts a matching callback token", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := newFakeStore()
		store.add(userID, fakeProfile{plan: entitlement.PlanFree})
		secured := cfg
		secured.CallbackToken = "shared-secret"
		h := newTestRouter(t, store, secured)

		body := `{"event":"invoice.paid","id":"inv-1","external_id":"` + userID.String() + `","payer_email":"x@y.com"}`
		rr := postWebhook(t, h, body, map[string]string{"x-callback-token": "shared-secret"})

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("acknowledges unrecognized events without mutation", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		h := newTestRouter(t, store, cfg)

		rr := postWebhook(t, h, `{"event":"invoice.voided","id":"inv-1"}`, nil)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true}`, rr.Body.String())
		assert.Empty(t, store.profiles)
	})

	t.Run("rejects malformed payloads with 400", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, newFakeStore(), cfg)

		rr := postWebhook(t, h, `{"event":"invoice.paid"}`, nil)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "error")
	})

	t.Run("rejects a paid invoice without payer email", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := newFakeStore()
		store.add(userID, fakeProfile{plan: entitlement.PlanFree})
		h := newTestRouter(t, store, cfg)

		body := `{"event":"invoice.paid","id":"inv-1","external_id":"` + userID.String() + `"}`
		rr := postWebhook(t, h, body, nil)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, entitlement.PlanFree, store.get(userID).plan)
	})

	t.Run("rejects unmappable external ids with 400", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		h := newTestRouter(t, store, cfg)

		body := `{"event":"invoice.paid","id":"inv-1","external_id":"` + uuid.NewString() + `","payer_email":"x@y.com"}`
		rr := postWebhook(t, h, body, nil)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, store.profiles)
	})

	t.Run("store failure returns 500 for provider retry", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := newFakeStore()
		store.add(userID, fakeProfile{plan: entitlement.PlanFree})
		store.failWith = errors.New("connection refused")
		h := newTestRouter(t, store, cfg)

		body := `{"event":"invoice.paid","id":"inv-1","external_id":"` + userID.String() + `","payer_email":"x@y.com"}`
		rr := postWebhook(t, h, body, nil)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestSweepEndpoint(t *testing.T) {
	t.Parallel()

	cfg := billing.Config{MaxBodyBytes: 1 << 20}

	t.Run("reports expired and grace-period counts", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		pastGrace := testNow.AddDate(0, 0, -10)
		inGrace := testNow.AddDate(0, 0, -2)
		store.add(uuid.New(), fakeProfile{plan: entitlement.PlanPro, end: &pastGrace})
		store.add(uuid.New(), fakeProfile{plan: entitlement.PlanPro, end: &inGrace})
		h := newTestRouter(t, store, cfg)

		req := httptest.NewRequest(http.MethodPost, "/internal/subscriptions/sweep", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Success          bool   `json:"success"`
			Message          string `json:"message"`
			ExpiredUsers     int    `json:"expired_users"`
			GracePeriodUsers int    `json:"grace_period_users"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 1, resp.ExpiredUsers)
		assert.Equal(t, 1, resp.GracePeriodUsers)
		assert.Contains(t, resp.Message, "1")
	})

	t.Run("reports a no-op pass", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, newFakeStore(), cfg)

		req := httptest.NewRequest(http.MethodPost, "/internal/subscriptions/sweep", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "No expired subscriptions found")
	})

	t.Run("store failure returns 500", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.failWith = errors.New("connection refused")
		h := newTestRouter(t, store, cfg)

		req := httptest.NewRequest(http.MethodPost, "/internal/subscriptions/sweep", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
