package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/finhub/backend/internal/domain/shared"
	"github.com/finhub/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a Redis store when Redis is enabled and
// reachable, otherwise an in-memory store. The in-memory store only
// deduplicates within one process.
func NewIdempotencyStore(cfg config.RedisConfig, logger *zap.Logger) shared.IdempotencyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		return NewMemoryIdempotencyStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.Warn("Redis unavailable, delivery deduplication falls back to process memory",
			zap.String("addr", cfg.Addr()),
			zap.Error(fmt.Errorf("ping: %w", err)),
		)
		return NewMemoryIdempotencyStore()
	}

	logger.Info("using Redis delivery deduplication", zap.String("addr", cfg.Addr()))
	store := NewRedisIdempotencyStore(client, "")
	store.ownClient = true
	return store
}
