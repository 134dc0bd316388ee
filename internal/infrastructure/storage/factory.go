package storage

import (
	"context"
	"fmt"
	"time"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewObjectStorage builds the storage backend named by cfg.Driver.
// The S3 backend creates its bucket when it does not exist yet.
func NewObjectStorage(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (apporig.ObjectStorage, error) {
	switch cfg.Driver {
	case "", "memory":
		logger.Warn("using in-memory object storage; documents are lost on restart")
		return NewMemoryObjectStorage(), nil
	case "s3":
		s3, err := NewS3ObjectStorage(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %q: %w", s3.Bucket(), err)
		}
		logger.Info("using S3 object storage", zap.String("bucket", s3.Bucket()))
		return s3, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
