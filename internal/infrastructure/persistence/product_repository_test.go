package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/sourcing"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProductRows(slug string) *sourcing.ProductRows {
	p := &catalog.TransformedProduct{
		Name:       "Floral Cotton Dress",
		Slug:       slug,
		SKU:        "SF-A1B2C3-00",
		CategoryID: "toddler-dresses",
		Price:      decimal.RequireFromString("28.99"),
		Variants: []catalog.TransformedVariant{
			{
				SKU:            "SF-A1B2C3-4F",
				Name:           "Floral Cotton Dress - 2T",
				Size:           "2T",
				Price:          decimal.RequireFromString("28.99"),
				CompareAtPrice: decimal.NewNullDecimal(decimal.RequireFromString("34.99")),
				SourceSKUID:    "sku-1",
				Stock:          12,
			},
			{
				SKU:         "SF-A1B2C3-9C",
				Name:        "Floral Cotton Dress - 3T",
				Size:        "3T",
				Price:       decimal.RequireFromString("29.99"),
				SourceSKUID: "sku-2",
				Stock:       0,
			},
		},
	}
	return sourcing.BuildProductRows(uuid.NewString(), uuid.New(), p)
}

func TestGormProductRepository_CreateRows(t *testing.T) {
	ctx := context.Background()

	t.Run("creates product variants and inventory", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormProductRepository(db)
		rows := newTestProductRows("floral-cotton-dress-a1b2c3")

		require.NoError(t, repo.CreateRows(ctx, rows))

		exists, err := repo.ExistsBySlug(ctx, "floral-cotton-dress-a1b2c3")
		require.NoError(t, err)
		assert.True(t, exists)

		variants, err := repo.FindVariants(ctx, rows.Product.ID.String())
		require.NoError(t, err)
		require.Len(t, variants, 2)
		assert.Equal(t, "SF-A1B2C3-4F", variants[0].SKU)
		assert.True(t, variants[0].CompareAtPrice.Valid)
		assert.False(t, variants[1].CompareAtPrice.Valid)

		var items []models.InventoryItemModel
		require.NoError(t, db.Order("sku").Find(&items).Error)
		require.Len(t, items, 2)
		assert.Equal(t, 12, items[0].Quantity)
		assert.Equal(t, 0, items[1].Quantity)
	})

	t.Run("returns ErrDuplicateProduct when slug is taken", func(t *testing.T) {
		repo := NewGormProductRepository(setupTestDB(t))
		require.NoError(t, repo.CreateRows(ctx, newTestProductRows("floral-cotton-dress-a1b2c3")))

		dup := newTestProductRows("floral-cotton-dress-a1b2c3")
		err := repo.CreateRows(ctx, dup)

		assert.ErrorIs(t, err, sourcing.ErrDuplicateProduct)
	})

	t.Run("rejects nil rows", func(t *testing.T) {
		repo := NewGormProductRepository(setupTestDB(t))

		assert.Error(t, repo.CreateRows(ctx, nil))
	})
}

func TestGormProductRepository_ExistsBySlug(t *testing.T) {
	t.Run("reports false for unknown slug", func(t *testing.T) {
		repo := NewGormProductRepository(setupTestDB(t))

		exists, err := repo.ExistsBySlug(context.Background(), "missing-000000")

		require.NoError(t, err)
		assert.False(t, exists)
	})
}
