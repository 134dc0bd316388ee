package cache

import (
	"context"
	"testing"
	"time"

	"github.com/finhub/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryIdempotencyStore_Claim(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryIdempotencyStore(WithClock(clock.now))
	ctx := context.Background()

	ok, err := store.Claim(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.advance(time.Minute)
	ok, err = store.Claim(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired claim can be taken again")
}

func TestMemoryIdempotencyStore_Release(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	ctx := context.Background()

	_, _ = store.Claim(ctx, "k1", time.Hour)
	require.NoError(t, store.Release(ctx, "k1"))

	ok, err := store.Claim(ctx, "k1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, store.Close())
}

func TestMemoryIdempotencyStore_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryIdempotencyStore(WithClock(clock.now), WithSweepInterval(time.Minute))
	ctx := context.Background()

	_, _ = store.Claim(ctx, "a", 10*time.Second)
	_, _ = store.Claim(ctx, "b", 10*time.Second)
	assert.Equal(t, 2, store.Len())

	clock.advance(2 * time.Minute)
	_, _ = store.Claim(ctx, "c", time.Hour)
	assert.Equal(t, 1, store.Len())
}

func TestNewIdempotencyStore_DisabledUsesMemory(t *testing.T) {
	store := NewIdempotencyStore(config.RedisConfig{}, nil)
	_, ok := store.(*MemoryIdempotencyStore)
	assert.True(t, ok)
}

func TestNewIdempotencyStore_UnreachableFallsBack(t *testing.T) {
	store := NewIdempotencyStore(config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}, zaptest.NewLogger(t))
	_, ok := store.(*MemoryIdempotencyStore)
	assert.True(t, ok)
}

func TestRedisIdempotencyStore_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedisIdempotencyStore(client, "")
	assert.Equal(t, defaultIdempotencyPrefix, store.keyPrefix)

	_, err := store.Claim(context.Background(), "k1", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim delivery key")
	assert.NoError(t, store.Close())
}
