package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/domain/pricing"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	pricingKeyPrefix  = "storefront:pricing:"
	defaultPricingTTL = 10 * time.Minute
)

// PricingConfigCache is a cache-aside decorator over a pricing.ConfigRepository.
// Concurrent misses for the same category share one repository load. Redis failures
// degrade to direct repository reads.
type PricingConfigCache struct {
	repo    pricing.ConfigRepository
	client  *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	sfGroup singleflight.Group
}

// PricingConfigCacheOption is a functional option for configuring the cache
type PricingConfigCacheOption func(*PricingConfigCache)

// WithTTL sets how long a configuration stays cached
func WithTTL(ttl time.Duration) PricingConfigCacheOption {
	return func(c *PricingConfigCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger for the cache
func WithLogger(logger *zap.Logger) PricingConfigCacheOption {
	return func(c *PricingConfigCache) {
		c.logger = logger
	}
}

// NewPricingConfigCache wraps repo with a Redis cache.
// The caller retains ownership of client.
func NewPricingConfigCache(repo pricing.ConfigRepository, client *redis.Client, opts ...PricingConfigCacheOption) *PricingConfigCache {
	c := &PricingConfigCache{
		repo:   repo,
		client: client,
		ttl:    defaultPricingTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func pricingKey(categoryID string) string {
	return pricingKeyPrefix + categoryID
}

// FindByCategory returns the cached configuration, loading it from the repository on a miss.
// Not-found results are not cached, so a newly saved configuration is visible immediately.
func (c *PricingConfigCache) FindByCategory(ctx context.Context, categoryID string) (*pricing.CategoryPricingConfig, error) {
	if cfg, ok := c.get(ctx, categoryID); ok {
		return cfg, nil
	}

	val, err, shared := c.sfGroup.Do(categoryID, func() (any, error) {
		cfg, err := c.repo.FindByCategory(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		c.set(ctx, cfg)
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("Shared pricing config load", zap.String("category_id", categoryID))
	}

	// Callers may mutate the result; hand out a copy of the shared value.
	cfg := *val.(*pricing.CategoryPricingConfig)
	return &cfg, nil
}

// Save writes through to the repository and evicts the cached entry
func (c *PricingConfigCache) Save(ctx context.Context, cfg *pricing.CategoryPricingConfig) error {
	if err := c.repo.Save(ctx, cfg); err != nil {
		return err
	}
	c.Invalidate(ctx, cfg.CategoryID)
	return nil
}

// Invalidate removes the cached configuration of a category
func (c *PricingConfigCache) Invalidate(ctx context.Context, categoryID string) {
	if err := c.client.Del(ctx, pricingKey(categoryID)).Err(); err != nil {
		c.logger.Warn("Failed to evict pricing config",
			zap.String("category_id", categoryID),
			zap.Error(err))
	}
}

func (c *PricingConfigCache) get(ctx context.Context, categoryID string) (*pricing.CategoryPricingConfig, bool) {
	data, err := c.client.Get(ctx, pricingKey(categoryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Pricing config cache read failed",
			zap.String("category_id", categoryID),
			zap.Error(err))
		return nil, false
	}

	var cfg pricing.CategoryPricingConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		c.logger.Warn("Discarding corrupt pricing config cache entry",
			zap.String("category_id", categoryID),
			zap.Error(err))
		c.Invalidate(ctx, categoryID)
		return nil, false
	}
	return &cfg, true
}

func (c *PricingConfigCache) set(ctx context.Context, cfg *pricing.CategoryPricingConfig) {
	data, err := json.Marshal(cfg)
	if err != nil {
		c.logger.Warn("Failed to encode pricing config", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, pricingKey(cfg.CategoryID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Pricing config cache write failed",
			zap.String("category_id", cfg.CategoryID),
			zap.Error(err))
	}
}

// Ensure PricingConfigCache implements ConfigRepository
var _ pricing.ConfigRepository = (*PricingConfigCache)(nil)
