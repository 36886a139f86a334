package storage

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/catalog"
	infraconfig "github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Drivers
const (
	DriverS3    = "s3"
	DriverDrive = "drive"
	DriverLocal = "local"
)

// NewAssetStore builds the asset store selected by cfg.Driver
func NewAssetStore(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (catalog.AssetStore, error) {
	switch cfg.Driver {
	case DriverS3:
		store, err := NewS3AssetStore(ctx, cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case DriverDrive:
		return NewDriveAssetStore(ctx, cfg, WithDriveLogger(logger))
	case DriverLocal, "":
		return NewLocalAssetStore(cfg.LocalDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
