package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/linksight/gateway/internal/infra"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	redisTC "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestCache is a throwaway Redis instance backing the rate limiter in
// tests.
type TestCache struct {
	Client    *redis.Client
	container *redisTC.RedisContainer
}

// SetupTestCache starts a Redis container and connects a client to it.
func SetupTestCache(ctx context.Context) (*TestCache, error) {
	container, err := redisTC.Run(ctx,
		"redis:8-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start redis container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		return nil, terminate(ctx, container, fmt.Errorf("container connection string: %w", err))
	}

	client, err := infra.NewCacheClient(ctx, connStr)
	if err != nil {
		return nil, terminate(ctx, container, fmt.Errorf("connect client: %w", err))
	}

	return &TestCache{Client: client, container: container}, nil
}

// Cleanup drops all keys, resetting every rate-limit window.
func (t *TestCache) Cleanup(ctx context.Context) {
	if t == nil || t.Client == nil {
		return
	}
	t.Client.FlushDB(ctx)
}

// Teardown closes the client and terminates the container.
func (t *TestCache) Teardown(ctx context.Context) {
	if t.Client != nil {
		t.Client.Close()
	}
	if t.container != nil {
		_ = t.container.Terminate(ctx)
	}
}
