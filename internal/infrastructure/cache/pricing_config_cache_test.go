package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockConfigRepository is a mock implementation of pricing.ConfigRepository
type MockConfigRepository struct {
	mock.Mock
}

func (m *MockConfigRepository) FindByCategory(ctx context.Context, categoryID string) (*pricing.CategoryPricingConfig, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.CategoryPricingConfig), args.Error(1)
}

func (m *MockConfigRepository) Save(ctx context.Context, cfg *pricing.CategoryPricingConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func setupPricingCache(t *testing.T, repo pricing.ConfigRepository) (*PricingConfigCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewPricingConfigCache(repo, client, WithTTL(time.Minute), WithLogger(zaptest.NewLogger(t))), mr
}

func testConfig() *pricing.CategoryPricingConfig {
	cfg := pricing.DefaultConfig("toddler-dresses")
	cfg.MinPrice = decimal.NewNullDecimal(decimal.RequireFromString("15.00"))
	return &cfg
}

func TestPricingConfigCache_FindByCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("loads from repository once then serves from Redis", func(t *testing.T) {
		repo := new(MockConfigRepository)
		repo.On("FindByCategory", mock.Anything, "toddler-dresses").Return(testConfig(), nil).Once()
		c, mr := setupPricingCache(t, repo)

		first, err := c.FindByCategory(ctx, "toddler-dresses")
		require.NoError(t, err)
		second, err := c.FindByCategory(ctx, "toddler-dresses")
		require.NoError(t, err)

		assert.True(t, first.MarkupFactor.Equal(second.MarkupFactor))
		assert.True(t, second.MinPrice.Valid)
		assert.True(t, mr.Exists(pricingKey("toddler-dresses")))
		repo.AssertExpectations(t)
	})

	t.Run("reloads after the entry expires", func(t *testing.T) {
		repo := new(MockConfigRepository)
		repo.On("FindByCategory", mock.Anything, "toddler-dresses").Return(testConfig(), nil).Twice()
		c, mr := setupPricingCache(t, repo)

		_, err := c.FindByCategory(ctx, "toddler-dresses")
		require.NoError(t, err)
		mr.FastForward(2 * time.Minute)
		_, err = c.FindByCategory(ctx, "toddler-dresses")
		require.NoError(t, err)

		repo.AssertExpectations(t)
	})

	t.Run("does not cache not found", func(t *testing.T) {
		repo := new(MockConfigRepository)
		repo.On("FindByCategory", mock.Anything, "swimwear").Return(nil, shared.ErrNotFound)
		c, mr := setupPricingCache(t, repo)

		_, err := c.FindByCategory(ctx, "swimwear")

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.False(t, mr.Exists(pricingKey("swimwear")))
	})

	t.Run("falls back to repository when Redis fails", func(t *testing.T) {
		repo := new(MockConfigRepository)
		repo.On("FindByCategory", mock.Anything, "toddler-dresses").Return(testConfig(), nil)
		c, mr := setupPricingCache(t, repo)
		mr.SetError("ERR injected failure")

		cfg, err := c.FindByCategory(ctx, "toddler-dresses")

		require.NoError(t, err)
		assert.Equal(t, "toddler-dresses", cfg.CategoryID)
	})

	t.Run("discards corrupt entries", func(t *testing.T) {
		repo := new(MockConfigRepository)
		repo.On("FindByCategory", mock.Anything, "toddler-dresses").Return(testConfig(), nil).Once()
		c, mr := setupPricingCache(t, repo)
		require.NoError(t, mr.Set(pricingKey("toddler-dresses"), "{not json"))

		cfg, err := c.FindByCategory(ctx, "toddler-dresses")

		require.NoError(t, err)
		assert.Equal(t, "toddler-dresses", cfg.CategoryID)
		repo.AssertExpectations(t)
	})

	t.Run("collapses concurrent misses into one load", func(t *testing.T) {
		var calls atomic.Int32
		release := make(chan struct{})
		repo := &blockingRepo{cfg: testConfig(), calls: &calls, release: release}
		c, _ := setupPricingCache(t, repo)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := c.FindByCategory(ctx, "toddler-dresses")
				assert.NoError(t, err)
			}()
		}
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestPricingConfigCache_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("evicts the cached entry", func(t *testing.T) {
		cfg := testConfig()
		repo := new(MockConfigRepository)
		repo.On("FindByCategory", mock.Anything, "toddler-dresses").Return(cfg, nil).Once()
		repo.On("Save", mock.Anything, cfg).Return(nil).Once()
		c, mr := setupPricingCache(t, repo)

		_, err := c.FindByCategory(ctx, "toddler-dresses")
		require.NoError(t, err)
		require.True(t, mr.Exists(pricingKey("toddler-dresses")))

		require.NoError(t, c.Save(ctx, cfg))

		assert.False(t, mr.Exists(pricingKey("toddler-dresses")))
		repo.AssertExpectations(t)
	})

	t.Run("keeps the entry when the write fails", func(t *testing.T) {
		cfg := testConfig()
		repo := new(MockConfigRepository)
		repo.On("Save", mock.Anything, cfg).Return(pricing.ErrInvalidConfiguration)
		c, mr := setupPricingCache(t, repo)
		require.NoError(t, mr.Set(pricingKey("toddler-dresses"), "{}"))

		err := c.Save(ctx, cfg)

		assert.ErrorIs(t, err, pricing.ErrInvalidConfiguration)
		assert.True(t, mr.Exists(pricingKey("toddler-dresses")))
	})
}

// blockingRepo holds every load until release is closed
type blockingRepo struct {
	cfg     *pricing.CategoryPricingConfig
	calls   *atomic.Int32
	release chan struct{}
}

func (r *blockingRepo) FindByCategory(ctx context.Context, _ string) (*pricing.CategoryPricingConfig, error) {
	r.calls.Add(1)
	select {
	case <-r.release:
		return r.cfg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *blockingRepo) Save(context.Context, *pricing.CategoryPricingConfig) error { return nil }
