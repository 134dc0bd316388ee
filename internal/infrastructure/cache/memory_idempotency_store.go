// Package cache holds the delivery deduplication stores used by event
// handlers with side effects outside the database.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/finhub/backend/internal/domain/shared"
)

var _ shared.IdempotencyStore = (*MemoryIdempotencyStore)(nil)

const defaultSweepInterval = 5 * time.Minute

// MemoryIdempotencyStore keeps claims in process memory. Expired claims are
// swept lazily on Claim, so the store runs no background goroutine.
type MemoryIdempotencyStore struct {
	mu            sync.Mutex
	claims        map[string]time.Time
	now           func() time.Time
	sweepInterval time.Duration
	lastSweep     time.Time
}

// MemoryStoreOption configures a MemoryIdempotencyStore
type MemoryStoreOption func(*MemoryIdempotencyStore)

// WithClock replaces time.Now
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryIdempotencyStore) {
		s.now = now
	}
}

// WithSweepInterval sets how often expired claims are purged
func WithSweepInterval(d time.Duration) MemoryStoreOption {
	return func(s *MemoryIdempotencyStore) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// NewMemoryIdempotencyStore creates an empty in-memory store
func NewMemoryIdempotencyStore(opts ...MemoryStoreOption) *MemoryIdempotencyStore {
	s := &MemoryIdempotencyStore{
		claims:        make(map[string]time.Time),
		now:           time.Now,
		sweepInterval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastSweep = s.now()
	return s
}

// Claim reserves key until now+ttl
func (s *MemoryIdempotencyStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.sweepInterval {
		s.sweepLocked(now)
	}

	if expires, ok := s.claims[key]; ok && now.Before(expires) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)
	return true, nil
}

// Release forgets key
func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.claims, key)
	s.mu.Unlock()
	return nil
}

// Close is a no-op
func (s *MemoryIdempotencyStore) Close() error {
	return nil
}

// Len returns the number of claims currently held, expired or not
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

func (s *MemoryIdempotencyStore) sweepLocked(now time.Time) {
	for key, expires := range s.claims {
		if !now.Before(expires) {
			delete(s.claims, key)
		}
	}
	s.lastSweep = now
}
