package lock

import (
	"context"
	"fmt"
	"time"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Ensure RedisLocker implements ApplicationLocker
var _ apporig.ApplicationLocker = (*RedisLocker)(nil)

const (
	defaultKeyPrefix    = "finhub:lock:application:"
	defaultPollInterval = 50 * time.Millisecond
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements ApplicationLocker with SET NX PX, shared by all
// service instances. The TTL bounds how long a crashed holder blocks others.
type RedisLocker struct {
	client       redis.UniversalClient
	keyPrefix    string
	wait         time.Duration
	ttl          time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

// RedisLockerOption is a functional option for configuring RedisLocker
type RedisLockerOption func(*RedisLocker)

// WithKeyPrefix overrides the Redis key prefix
func WithKeyPrefix(prefix string) RedisLockerOption {
	return func(l *RedisLocker) {
		l.keyPrefix = prefix
	}
}

// WithPollInterval sets how often a waiting TryLock retries
func WithPollInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		l.pollInterval = d
	}
}

// WithLockLogger sets the logger
func WithLockLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// NewRedisLocker creates a RedisLocker on an existing client
func NewRedisLocker(client redis.UniversalClient, wait, ttl time.Duration, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:       client,
		keyPrefix:    defaultKeyPrefix,
		wait:         wait,
		ttl:          ttl,
		pollInterval: defaultPollInterval,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryLock polls SET NX until it wins or the wait expires
func (l *RedisLocker) TryLock(ctx context.Context, applicationID uuid.UUID) (func(), error) {
	key := l.keyPrefix + applicationID.String()
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire application lock: %w", err)
		}
		if ok {
			return l.releaser(key, token), nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, apporig.ErrLockNotAcquired
		}

		timer := time.NewTimer(min(l.pollInterval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	return func() {
		// release must outlive a cancelled request context
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release application lock; it will expire",
				zap.String("key", key),
				zap.Duration("ttl", l.ttl),
				zap.Error(err),
			)
		}
	}
}
