package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPricingConfigRepository implements pricing.ConfigRepository using GORM
type GormPricingConfigRepository struct {
	db *gorm.DB
}

// NewGormPricingConfigRepository creates a new GormPricingConfigRepository
func NewGormPricingConfigRepository(db *gorm.DB) *GormPricingConfigRepository {
	return &GormPricingConfigRepository{db: db}
}

// FindByCategory loads the stored configuration of a category
func (r *GormPricingConfigRepository) FindByCategory(ctx context.Context, categoryID string) (*pricing.CategoryPricingConfig, error) {
	var model models.CategoryPricingModel
	if err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save validates and upserts the configuration of a category
func (r *GormPricingConfigRepository) Save(ctx context.Context, cfg *pricing.CategoryPricingConfig) error {
	if cfg == nil || cfg.CategoryID == "" {
		return shared.NewDomainError("INVALID_CATEGORY", "Category id is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	model := models.CategoryPricingModelFromDomain(cfg)
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category_name", "markup_factor", "shipping_buffer", "platform_fee",
			"rounding_increment", "min_price", "max_price", "updated_at",
		}),
	}).Create(model).Error
}

// Ensure GormPricingConfigRepository implements ConfigRepository
var _ pricing.ConfigRepository = (*GormPricingConfigRepository)(nil)
