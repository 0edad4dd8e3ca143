package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedisStore(t *testing.T) *RedisIdempotencyStore {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, endpoint, "", 0)
	require.NoError(t, err)

	store := NewRedisIdempotencyStore(client, "test:")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisIdempotencyStore(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	isNew, err := store.MarkProcessed(ctx, "h:e1", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "h:e1", time.Minute)
	require.NoError(t, err)
	assert.False(t, isNew)

	processed, err := store.IsProcessed(ctx, "h:e1")
	require.NoError(t, err)
	assert.True(t, processed)

	ttl, err := store.client.TTL(ctx, "test:h:e1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Unmark(ctx, "h:e1"))
	processed, err = store.IsProcessed(ctx, "h:e1")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestNewRedisIdempotencyStore_DefaultPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	store := NewRedisIdempotencyStore(client, "")
	assert.Equal(t, DefaultKeyPrefix, store.keyPrefix)
}
