//go:build integration

package lock

import (
	"context"
	"testing"
	"time"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLocker_Integration(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	id := uuid.New()

	first := NewRedisLocker(client, 50*time.Millisecond, 2*time.Second, WithPollInterval(10*time.Millisecond))
	second := NewRedisLocker(client, 50*time.Millisecond, 2*time.Second, WithPollInterval(10*time.Millisecond))

	release, err := first.TryLock(ctx, id)
	require.NoError(t, err)

	_, err = second.TryLock(ctx, id)
	assert.ErrorIs(t, err, apporig.ErrLockNotAcquired)

	release()
	release2, err := second.TryLock(ctx, id)
	require.NoError(t, err)
	release2()

	t.Run("expired lock is not released by its old holder", func(t *testing.T) {
		short := NewRedisLocker(client, 0, 30*time.Millisecond)
		staleRelease, err := short.TryLock(ctx, id)
		require.NoError(t, err)
		time.Sleep(60 * time.Millisecond)

		current, err := second.TryLock(ctx, id)
		require.NoError(t, err)
		defer current()

		staleRelease()
		exists, err := client.Exists(ctx, defaultKeyPrefix+id.String()).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)
	})
}
