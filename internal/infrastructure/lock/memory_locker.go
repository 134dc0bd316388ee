// Package lock serializes mutations of a single application, either within
// one process or across instances through Redis.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Ensure MemoryLocker implements ApplicationLocker
var _ apporig.ApplicationLocker = (*MemoryLocker)(nil)

// MemoryLocker holds one weighted semaphore of size 1 per application.
// Entries are reference counted and dropped when nobody holds or waits.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
	wait  time.Duration
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// NewMemoryLocker creates a MemoryLocker. wait bounds TryLock; wait <= 0
// means a single non-blocking attempt.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[uuid.UUID]*lockEntry),
		wait:  wait,
	}
}

// TryLock acquires the application's lock, waiting at most the configured
// time. It returns ErrLockNotAcquired when the wait expires and the context
// error when ctx ends first.
func (l *MemoryLocker) TryLock(ctx context.Context, applicationID uuid.UUID) (func(), error) {
	entry := l.ref(applicationID)

	if l.wait <= 0 {
		if !entry.sem.TryAcquire(1) {
			l.unref(applicationID)
			return nil, apporig.ErrLockNotAcquired
		}
		return l.releaser(applicationID, entry), nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	if err := entry.sem.Acquire(waitCtx, 1); err != nil {
		l.unref(applicationID)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apporig.ErrLockNotAcquired
		}
		return nil, err
	}
	return l.releaser(applicationID, entry), nil
}

func (l *MemoryLocker) releaser(applicationID uuid.UUID, entry *lockEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			entry.sem.Release(1)
			l.unref(applicationID)
		})
	}
}

func (l *MemoryLocker) ref(applicationID uuid.UUID) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[applicationID]
	if !ok {
		entry = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.locks[applicationID] = entry
	}
	entry.refs++
	return entry
}

func (l *MemoryLocker) unref(applicationID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[applicationID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, applicationID)
	}
}

// size returns the number of tracked applications
func (l *MemoryLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
