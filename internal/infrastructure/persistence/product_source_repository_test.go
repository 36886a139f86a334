package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/listing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/sourcing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProductSource(sourceProductID string) *sourcing.ProductSource {
	p := &catalog.TransformedProduct{
		SourceProductID: sourceProductID,
		SourceURL:       "https://m.example/item/" + sourceProductID,
		CategoryID:      "toddler-dresses",
		ImageURLs:       []string{"https://img.example/1.jpg", "https://img.example/2.jpg"},
		VariantMappings: []catalog.VariantMapping{
			{LocalSKU: "SF-A1B2C3-4F", SourceSKUID: "sku-1", SourceLabel: "Pink / 2T"},
		},
		CostPrice: decimal.RequireFromString("10.00"),
		Price:     decimal.RequireFromString("28.99"),
		Currency:  "USD",
	}
	return sourcing.NewProductSource(uuid.NewString(), uuid.New(), p,
		listing.StockSummary{Availability: listing.AvailabilityInStock})
}

func TestGormProductSourceRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the record with its JSON columns", func(t *testing.T) {
		repo := NewGormProductSourceRepository(setupTestDB(t))
		ps := newTestProductSource("1005001")

		require.NoError(t, repo.Create(ctx, ps))

		found, err := repo.FindBySourceProductID(ctx, "1005001")
		require.NoError(t, err)
		assert.Equal(t, ps.ID, found.ID)
		assert.Equal(t, ps.ContentDocID, found.ContentDocID)
		assert.Equal(t, ps.OriginalImageURLs, found.OriginalImageURLs)
		assert.Equal(t, ps.VariantMappings, found.VariantMappings)
		assert.True(t, ps.RetailPrice.Equal(found.RetailPrice))
		assert.Equal(t, sourcing.InventoryInStock, found.InventoryStatus)
		assert.Equal(t, sourcing.SourceActive, found.SourceStatus)
	})

	t.Run("rejects a second record for the same listing", func(t *testing.T) {
		repo := NewGormProductSourceRepository(setupTestDB(t))
		require.NoError(t, repo.Create(ctx, newTestProductSource("1005001")))

		err := repo.Create(ctx, newTestProductSource("1005001"))

		assert.ErrorIs(t, err, sourcing.ErrDuplicateSource)
	})
}

func TestGormProductSourceRepository_FindBySourceProductID(t *testing.T) {
	t.Run("returns ErrNotFound for unknown listing", func(t *testing.T) {
		repo := NewGormProductSourceRepository(setupTestDB(t))

		_, err := repo.FindBySourceProductID(context.Background(), "nope")

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
