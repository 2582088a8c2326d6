package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tashkeelhq/tashkeel/modules/billing"
	"github.com/tashkeelhq/tashkeel/pkg/entitlement"
)

func TestSweeper_Run(t *testing.T) {
	t.Parallel()

	catalog := billing.DefaultCatalog()

	addPro := func(store *fakeStore, end time.Time) uuid.UUID {
		id := uuid.New()
		store.add(id, fakeProfile{plan: entitlement.PlanPro, payment: entitlement.PaymentExpired, end: &end})
		return id
	}

	t.Run("downgrades only profiles past the grace window", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		pastGrace := addPro(store, testNow.AddDate(0, 0, -10))
		inGrace := addPro(store, testNow.AddDate(0, 0, -2))
		current := addPro(store, testNow.AddDate(0, 0, 5))

		sweeper := billing.NewSweeper(store, catalog, discardLogger(), billing.WithSweeperClock(fixedClock))
		result, err := sweeper.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, result.Downgraded)
		assert.Equal(t, 1, result.InGrace)
		assert.Equal(t, entitlement.PlanFree, store.get(pastGrace).plan)
		assert.Equal(t, entitlement.PaymentExpired, store.get(pastGrace).payment)
		assert.Equal(t, entitlement.PlanPro, store.get(inGrace).plan)
		assert.Equal(t, entitlement.PlanPro, store.get(current).plan)
	})

	t.Run("second run with no new expiries downgrades nothing", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		addPro(store, testNow.AddDate(0, 0, -10))

		sweeper := billing.NewSweeper(store, catalog, discardLogger(), billing.WithSweeperClock(fixedClock))

		first, err := sweeper.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, first.Downgraded)

		second, err := sweeper.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, second.Downgraded)
	})

	t.Run("renewal applied before the sweep is not downgraded", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		userID := addPro(store, testNow.AddDate(0, 0, -10))

		// Webhook renewal lands between scheduling and the sweep pass.
		rec := billing.NewReconciler(store, catalog, discardLogger(), billing.WithClock(fixedClock))
		require.NoError(t, rec.Apply(context.Background(), paidEvent(userID, "inv-renewal")))

		sweeper := billing.NewSweeper(store, catalog, discardLogger(), billing.WithSweeperClock(fixedClock))
		result, err := sweeper.Run(context.Background())
		require.NoError(t, err)

		assert.Zero(t, result.Downgraded)
		assert.Equal(t, entitlement.PlanPro, store.get(userID).plan)
	})

	t.Run("empty store is a no-op", func(t *testing.T) {
		t.Parallel()
		sweeper := billing.NewSweeper(newFakeStore(), catalog, discardLogger(), billing.WithSweeperClock(fixedClock))

		result, err := sweeper.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, result.Downgraded)
		assert.Zero(t, result.InGrace)
	})

	t.Run("store failure fails the sweep", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.failWith = errors.New("connection refused")

		sweeper := billing.NewSweeper(store, catalog, discardLogger(), billing.WithSweeperClock(fixedClock))
		_, err := sweeper.Run(context.Background())
		assert.ErrorIs(t, err, billing.ErrSweepFailed)
	})
}
