package lock

import (
	"context"
	"fmt"
	"time"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewApplicationLocker picks the locker for the configuration. With Redis
// enabled it pings the server and fails if it is unreachable; otherwise
// locks are held in process memory, which is only correct for a single
// instance. The returned close function releases the Redis client.
func NewApplicationLocker(redisCfg config.RedisConfig, syncCfg config.SyncConfig, logger *zap.Logger) (apporig.ApplicationLocker, func() error, error) {
	if !redisCfg.Enabled {
		logger.Warn("Redis disabled, application locks are process-local; run a single instance")
		return NewMemoryLocker(syncCfg.LockWait), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("using Redis application locks", zap.String("addr", redisCfg.Addr()))
	return NewRedisLocker(client, syncCfg.LockWait, syncCfg.LockTTL, WithLockLogger(logger)), client.Close, nil
}
