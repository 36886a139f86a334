package contentstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap/zaptest"
)

func newTestDocument() *catalog.ContentDocument {
	p := &catalog.TransformedProduct{
		Name:        "Floral Ruffle Toddler Dress",
		Slug:        "floral-ruffle-toddler-dress-a1b2c3",
		Description: []catalog.DescriptionBlock{{Type: catalog.BlockParagraph, Text: "Soft cotton dress."}},
		Price:       decimal.RequireFromString("28.99"),
		CompareAtPrice: decimal.NewNullDecimal(
			decimal.RequireFromString("34.79")),
		Currency:   "USD",
		SKU:        "SF-A1B2C3-1005",
		CategoryID: "toddler-dresses",
		Variants: []catalog.TransformedVariant{
			{SKU: "SF-A1B2C3-1005-2T-RED", Name: "2T / Red", Size: "2T", Color: "Red", Price: decimal.RequireFromString("28.99"), Stock: 10},
		},
		SourceProductID: "1005001234",
	}
	return catalog.NewContentDocument(p, []catalog.ProcessedImage{
		{SourceURL: "https://cdn.example.com/a.jpg", AssetID: "products/x/1.jpg", URL: "https://assets.example.com/1.jpg", Width: 800, Height: 800, Primary: true},
	})
}

func TestProductDocument_RoundTrip(t *testing.T) {
	doc := newTestDocument()
	doc.ID = "doc-1"

	pd := newProductDocument(doc)
	raw, err := bson.Marshal(pd)
	require.NoError(t, err)

	var decoded productDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	got := decoded.toDomain()

	assert.Equal(t, "doc-1", got.ID)
	assert.True(t, got.Price.Equal(doc.Price))
	require.True(t, got.CompareAtPrice.Valid)
	assert.True(t, got.CompareAtPrice.Decimal.Equal(doc.CompareAtPrice.Decimal))
	assert.Equal(t, []string{}, got.Tags)
	require.Len(t, got.Variants, 1)
	assert.False(t, got.Variants[0].CompareAtPrice.Valid)
	assert.Equal(t, doc.Images, got.Images)
	assert.Equal(t, doc.Description, got.Description)
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create keeps preset id", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll, WithLogger(zaptest.NewLogger(t)))
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		doc := newTestDocument()
		doc.ID = "6f1c5a3e-product"

		id, err := store.Create(ctx, doc)

		require.NoError(mt, err)
		assert.Equal(mt, "6f1c5a3e-product", id)
	})

	mt.Run("create generates id", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		doc := newTestDocument()

		id, err := store.Create(ctx, doc)

		require.NoError(mt, err)
		assert.NotEmpty(mt, id)
		assert.Equal(mt, id, doc.ID)
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))
		doc := newTestDocument()
		doc.ID = "dup"

		_, err := store.Create(ctx, doc)

		assert.ErrorIs(mt, err, catalog.ErrContentWrite)
		assert.ErrorIs(mt, err, catalog.ErrDocumentExists)
	})

	mt.Run("get", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		price, _ := primitive.ParseDecimal128("28.99")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.coll", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "doc-1"},
			{Key: "status", Value: "published"},
			{Key: "name", Value: "Floral Ruffle Toddler Dress"},
			{Key: "slug", Value: "floral-ruffle-toddler-dress-a1b2c3"},
			{Key: "price", Value: price},
			{Key: "currency", Value: "USD"},
			{Key: "created_at", Value: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		}))

		doc, err := store.Get(ctx, "doc-1")

		require.NoError(mt, err)
		assert.Equal(mt, catalog.DocumentPublished, doc.Status)
		assert.True(mt, doc.Price.Equal(decimal.RequireFromString("28.99")))
		assert.False(mt, doc.CompareAtPrice.Valid)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.coll", mtest.FirstBatch))

		_, err := store.Get(ctx, "missing")

		assert.ErrorIs(mt, err, catalog.ErrDocumentNotFound)
	})

	mt.Run("set status", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		require.NoError(mt, store.SetStatus(ctx, "doc-1", catalog.DocumentPublished))
	})

	mt.Run("set status missing", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		err := store.SetStatus(ctx, "missing", catalog.DocumentPublished)

		assert.ErrorIs(mt, err, catalog.ErrDocumentNotFound)
	})

	mt.Run("set status rejects unknown status", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)

		err := store.SetStatus(ctx, "doc-1", catalog.DocumentStatus("archived"))

		assert.ErrorIs(mt, err, catalog.ErrContentWrite)
	})

	mt.Run("delete", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}})

		require.NoError(mt, store.Delete(ctx, "doc-1"))
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})

		err := store.Delete(ctx, "missing")

		assert.ErrorIs(mt, err, catalog.ErrDocumentNotFound)
	})

	mt.Run("delete server error", func(mt *mtest.T) {
		store := NewMongoStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 91, Name: "ShutdownInProgress", Message: "shutting down",
		}))

		err := store.Delete(ctx, "doc-1")

		assert.ErrorIs(mt, err, catalog.ErrContentWrite)
	})
}
