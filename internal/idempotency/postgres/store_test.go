//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejobratic/storefront/internal/database/dbtest"
	"github.com/dejobratic/storefront/internal/idempotency/postgres"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

func createdResponse(orderID string) ports.StoredResponse {
	return ports.StoredResponse{
		StatusCode: 201,
		Body:       []byte(`{"id":"` + orderID + `"}`),
		OrderID:    orderID,
	}
}

func TestStore(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	t.Run("replays the saved response", func(t *testing.T) {
		store := postgres.NewStore(pool, time.Hour)
		require.NoError(t, store.Save(ctx, "checkout-1", createdResponse("order-1")))

		got, err := store.Get(ctx, "checkout-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, createdResponse("order-1"), *got)
	})

	t.Run("unknown key is a miss", func(t *testing.T) {
		store := postgres.NewStore(pool, time.Hour)

		got, err := store.Get(ctx, "checkout-unknown")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("first response wins while the key is live", func(t *testing.T) {
		store := postgres.NewStore(pool, time.Hour)
		require.NoError(t, store.Save(ctx, "checkout-2", createdResponse("order-2")))
		require.NoError(t, store.Save(ctx, "checkout-2", createdResponse("order-3")))

		got, err := store.Get(ctx, "checkout-2")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "order-2", got.OrderID)
	})

	t.Run("expired key is ignored, replaced and purged", func(t *testing.T) {
		store := postgres.NewStore(pool, time.Hour)
		_, err := pool.Exec(ctx,
			`INSERT INTO idempotency_keys (key, status_code, body, order_id, created_at)
			 VALUES ('checkout-old', 201, '{}', 'order-old', NOW() - INTERVAL '2 hours'),
			        ('checkout-stale', 201, '{}', 'order-stale', NOW() - INTERVAL '3 hours')`)
		require.NoError(t, err)

		got, err := store.Get(ctx, "checkout-old")
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, store.Save(ctx, "checkout-old", createdResponse("order-new")))
		got, err = store.Get(ctx, "checkout-old")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "order-new", got.OrderID)

		removed, err := store.Purge(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)
	})

	t.Run("zero ttl never purges", func(t *testing.T) {
		store := postgres.NewStore(pool, 0)

		removed, err := store.Purge(ctx)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}
