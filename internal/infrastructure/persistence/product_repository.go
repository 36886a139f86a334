package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront/backend/internal/domain/sourcing"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// ExistsBySlug checks if a product row with the given slug exists
func (r *GormProductRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CatalogProductModel{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateRows inserts the product followed by its variants and inventory.
// Callers run it inside a transaction so a failure leaves no partial rows.
func (r *GormProductRepository) CreateRows(ctx context.Context, rows *sourcing.ProductRows) error {
	if rows == nil || rows.Product == nil {
		return errors.New("product rows are required")
	}
	db := r.db.WithContext(ctx)

	if err := db.Create(models.CatalogProductModelFromDomain(rows.Product)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", sourcing.ErrDuplicateProduct, rows.Product.Slug)
		}
		return fmt.Errorf("create product: %w", err)
	}

	if len(rows.Variants) > 0 {
		variants := make([]models.ProductVariantModel, len(rows.Variants))
		for i, v := range rows.Variants {
			variants[i] = models.ProductVariantModelFromDomain(v)
		}
		if err := db.Create(&variants).Error; err != nil {
			return fmt.Errorf("create variants: %w", err)
		}
	}

	if len(rows.Inventory) > 0 {
		items := make([]models.InventoryItemModel, len(rows.Inventory))
		for i, item := range rows.Inventory {
			items[i] = models.InventoryItemModelFromDomain(item)
		}
		if err := db.Create(&items).Error; err != nil {
			return fmt.Errorf("create inventory: %w", err)
		}
	}
	return nil
}

// FindVariants returns the variants of a product ordered by SKU
func (r *GormProductRepository) FindVariants(ctx context.Context, productID string) ([]sourcing.Variant, error) {
	var rows []models.ProductVariantModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("sku ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	variants := make([]sourcing.Variant, len(rows))
	for i := range rows {
		variants[i] = rows[i].ToDomain()
	}
	return variants, nil
}

// Ensure GormProductRepository implements ProductRepository
var _ sourcing.ProductRepository = (*GormProductRepository)(nil)
