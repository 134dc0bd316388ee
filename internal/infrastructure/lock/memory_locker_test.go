package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_TryLock(t *testing.T) {
	ctx := context.Background()

	t.Run("second caller times out while held", func(t *testing.T) {
		locker := NewMemoryLocker(20 * time.Millisecond)
		id := uuid.New()

		release, err := locker.TryLock(ctx, id)
		require.NoError(t, err)

		_, err = locker.TryLock(ctx, id)
		assert.ErrorIs(t, err, apporig.ErrLockNotAcquired)

		release()
		release2, err := locker.TryLock(ctx, id)
		require.NoError(t, err)
		release2()
		assert.Zero(t, locker.size())
	})

	t.Run("different applications do not contend", func(t *testing.T) {
		locker := NewMemoryLocker(0)
		r1, err := locker.TryLock(ctx, uuid.New())
		require.NoError(t, err)
		r2, err := locker.TryLock(ctx, uuid.New())
		require.NoError(t, err)
		r1()
		r2()
	})

	t.Run("zero wait is a single attempt", func(t *testing.T) {
		locker := NewMemoryLocker(0)
		id := uuid.New()
		release, err := locker.TryLock(ctx, id)
		require.NoError(t, err)
		defer release()

		start := time.Now()
		_, err = locker.TryLock(ctx, id)
		assert.ErrorIs(t, err, apporig.ErrLockNotAcquired)
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("waiter gets the lock when released in time", func(t *testing.T) {
		locker := NewMemoryLocker(time.Second)
		id := uuid.New()
		release, err := locker.TryLock(ctx, id)
		require.NoError(t, err)

		go func() {
			time.Sleep(20 * time.Millisecond)
			release()
		}()

		release2, err := locker.TryLock(ctx, id)
		require.NoError(t, err)
		release2()
	})

	t.Run("cancelled context is reported as such", func(t *testing.T) {
		locker := NewMemoryLocker(time.Second)
		id := uuid.New()
		release, err := locker.TryLock(ctx, id)
		require.NoError(t, err)
		defer release()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = locker.TryLock(cancelled, id)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("release is idempotent", func(t *testing.T) {
		locker := NewMemoryLocker(0)
		id := uuid.New()
		release, err := locker.TryLock(ctx, id)
		require.NoError(t, err)
		release()
		release()

		again, err := locker.TryLock(ctx, id)
		require.NoError(t, err)
		again()
	})
}

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	locker := NewMemoryLocker(5 * time.Second)
	id := uuid.New()

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.TryLock(context.Background(), id)
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Zero(t, locker.size())
}
