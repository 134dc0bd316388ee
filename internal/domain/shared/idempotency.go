package shared

import (
	"context"
	"time"
)

// IdempotencyStore records which deliveries have already been handled so a
// redelivered event does not produce a second side effect.
type IdempotencyStore interface {
	// Claim reserves key for ttl. It returns false when the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release drops a claim so the delivery can be retried.
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig controls delivery deduplication
type IdempotencyConfig struct {
	// TTL is how long a handled key is remembered
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
