//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dejobratic/storefront/internal/idempotency/redis"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStore(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	store := redis.NewStore(client, time.Minute)

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	missing, err := store.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil response, got %+v", missing)
	}

	first := ports.StoredResponse{StatusCode: 201, Body: []byte(`{"order":{"id":"o-1"}}`), OrderID: "o-1"}
	second := ports.StoredResponse{StatusCode: 201, Body: []byte(`{"order":{"id":"o-2"}}`), OrderID: "o-2"}
	if err := store.Save(ctx, "key-1", first); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := store.Save(ctx, "key-1", second); err != nil {
		t.Fatalf("failed to save duplicate: %v", err)
	}

	got, err := store.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if got == nil || got.OrderID != "o-1" || string(got.Body) != string(first.Body) {
		t.Errorf("expected first response preserved, got %+v", got)
	}

	ttl, err := client.TTL(ctx, "idempotency:key-1").Result()
	if err != nil {
		t.Fatalf("failed to read ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected ttl within a minute, got %s", ttl)
	}
}
