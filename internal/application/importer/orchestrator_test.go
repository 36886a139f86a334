package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/storefront/backend/internal/application/media"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/listing"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/sourcing"
)

// MockFetcher is a mock implementation of listing.Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchListing(ctx context.Context, sourceURL string) (*listing.SourceListing, error) {
	args := m.Called(ctx, sourceURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.SourceListing), args.Error(1)
}

// MockContentStore is a mock implementation of catalog.ContentStore
type MockContentStore struct {
	mock.Mock
}

func (m *MockContentStore) Create(ctx context.Context, doc *catalog.ContentDocument) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

func (m *MockContentStore) Get(ctx context.Context, id string) (*catalog.ContentDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ContentDocument), args.Error(1)
}

func (m *MockContentStore) SetStatus(ctx context.Context, id string, status catalog.DocumentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockContentStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type memoryConfigRepo struct {
	configs map[string]pricing.CategoryPricingConfig
}

func (r *memoryConfigRepo) FindByCategory(_ context.Context, categoryID string) (*pricing.CategoryPricingConfig, error) {
	cfg, ok := r.configs[categoryID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &cfg, nil
}

func (r *memoryConfigRepo) Save(_ context.Context, cfg *pricing.CategoryPricingConfig) error {
	r.configs[cfg.CategoryID] = *cfg
	return nil
}

type memorySupplierRepo struct {
	mu        sync.Mutex
	suppliers map[string]*sourcing.Supplier
}

func (r *memorySupplierRepo) Upsert(_ context.Context, s *sourcing.Supplier) (*sourcing.Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.suppliers[s.ExternalID]; ok {
		existing.Name = s.Name
		return existing, nil
	}
	r.suppliers[s.ExternalID] = s
	return s, nil
}

func (r *memorySupplierRepo) FindByExternalID(_ context.Context, externalID string) (*sourcing.Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.suppliers[externalID]; ok {
		return s, nil
	}
	return nil, shared.ErrNotFound
}

type memorySourceRepo struct {
	mu      sync.Mutex
	sources map[string]*sourcing.ProductSource
}

func (r *memorySourceRepo) Create(_ context.Context, ps *sourcing.ProductSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[ps.SourceProductID]; ok {
		return sourcing.ErrDuplicateSource
	}
	r.sources[ps.SourceProductID] = ps
	return nil
}

func (r *memorySourceRepo) FindBySourceProductID(_ context.Context, id string) (*sourcing.ProductSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ps, ok := r.sources[id]; ok {
		return ps, nil
	}
	return nil, shared.ErrNotFound
}

type memoryProductRepo struct {
	mu        sync.Mutex
	rows      map[string]*sourcing.ProductRows
	createErr error
}

func (r *memoryProductRepo) ExistsBySlug(_ context.Context, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[slug]
	return ok, nil
}

func (r *memoryProductRepo) CreateRows(_ context.Context, rows *sourcing.ProductRows) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.rows[rows.Product.Slug] = rows
	return nil
}

type imageDownloader struct {
	data []byte
	fail map[string]bool
}

func (d *imageDownloader) Download(_ context.Context, url string, _ int64) ([]byte, error) {
	if d.fail[url] {
		return nil, media.ErrDownloadFailed
	}
	return d.data, nil
}

func (d *imageDownloader) DownloadPrefix(ctx context.Context, url string, _ int64) ([]byte, error) {
	return d.Download(ctx, url, 0)
}

type countingAssetStore struct {
	mu      sync.Mutex
	uploads map[string]bool
}

func (s *countingAssetStore) Upload(_ context.Context, key string, _ []byte, _ string) (*catalog.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[key] = true
	return &catalog.Asset{ID: key, URL: "https://cdn.example/" + key}, nil
}

func (s *countingAssetStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploads, id)
	return nil
}

type harness struct {
	fetcher   *MockFetcher
	content   *MockContentStore
	configs   *memoryConfigRepo
	suppliers *memorySupplierRepo
	sources   *memorySourceRepo
	products  *memoryProductRepo
	assets    *countingAssetStore
	preview   *countingAssetStore
	download  *imageDownloader
	orch      *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 20))))

	h := &harness{
		fetcher:   new(MockFetcher),
		content:   new(MockContentStore),
		configs:   &memoryConfigRepo{configs: map[string]pricing.CategoryPricingConfig{"baby": pricing.DefaultConfig("baby")}},
		suppliers: &memorySupplierRepo{suppliers: map[string]*sourcing.Supplier{}},
		sources:   &memorySourceRepo{sources: map[string]*sourcing.ProductSource{}},
		products:  &memoryProductRepo{rows: map[string]*sourcing.ProductRows{}},
		assets:    &countingAssetStore{uploads: map[string]bool{}},
		preview:   &countingAssetStore{uploads: map[string]bool{}},
		download:  &imageDownloader{data: buf.Bytes(), fail: map[string]bool{}},
	}
	processor := media.NewProcessor(h.assets, media.WithDownloader(h.download))
	h.orch = NewOrchestrator(Dependencies{
		Fetcher:        h.fetcher,
		PricingConfigs: h.configs,
		Images:         processor,
		AssetStore:     h.assets,
		ContentStore:   h.content,
		TxScope:        NewNoOpTransactionScope(h.suppliers, h.sources, h.products),
		SourceRepo:     h.sources,
	}, WithLogger(zaptest.NewLogger(t)), WithPreviewAssetStore(h.preview))
	return h
}

func testListing() *listing.SourceListing {
	return &listing.SourceListing{
		ExternalID:  "1005001",
		Title:       "Hot Sale Baby Girl Cotton Romper",
		Description: "Soft cotton romper for everyday wear.",
		Cost:        valueobject.USDFromString("10.00"),
		ImageURLs:   []string{"https://img.example/a.jpg", "https://img.example/b.jpg"},
		Variants: []listing.SourceVariant{
			{SKUID: "s1", Attributes: map[string]string{"size": "2t"}, Stock: 20},
			{SKUID: "s2", Attributes: map[string]string{"size": "3t"}, Stock: 20},
		},
		Seller:    listing.Seller{ID: "seller-1", Name: "Baby Shop", StoreURL: "https://m.example/store/1"},
		SourceURL: "https://m.example/item/1005001.html",
		FetchedAt: time.Now(),
	}
}

const itemURL = "https://m.example/item/1005001.html"

func TestOrchestrator_Import_Success(t *testing.T) {
	h := newHarness(t)
	h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)
	h.content.On("Create", mock.Anything, mock.MatchedBy(func(d *catalog.ContentDocument) bool {
		return d.Status == catalog.DocumentPending && len(d.Images) == 2 && d.Images[0].Primary
	})).Return("doc-1", nil)
	h.content.On("SetStatus", mock.Anything, "doc-1", catalog.DocumentPublished).Return(nil)

	res, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, StateSucceeded, res.State)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "doc-1", res.ContentDocID)
	assert.NotEmpty(t, res.SourceRecordID)
	assert.True(t, strings.HasPrefix(res.Slug, "baby-girl-cotton-romper-"))

	require.Contains(t, h.sources.sources, "1005001")
	ps := h.sources.sources["1005001"]
	assert.Equal(t, "doc-1", ps.ContentDocID)
	assert.Len(t, ps.VariantMappings, 2)
	assert.True(t, decimal.RequireFromString("28.99").Equal(ps.RetailPrice))
	assert.Equal(t, sourcing.InventoryInStock, ps.InventoryStatus)

	require.Contains(t, h.suppliers.suppliers, "seller-1")
	assert.Equal(t, h.suppliers.suppliers["seller-1"].ID, ps.SupplierID)

	rows := h.products.rows[res.Slug]
	require.NotNil(t, rows)
	assert.Len(t, rows.Variants, 2)
	assert.Len(t, rows.Inventory, 2)
	assert.Len(t, h.assets.uploads, 2)
	h.content.AssertExpectations(t)
}

func TestOrchestrator_Import_Failures(t *testing.T) {
	t.Run("fetch failure", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(nil, listing.ErrFetchFailed)

		res, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		require.Error(t, err)
		assert.Equal(t, KindFetch, KindOf(err))
		assert.ErrorIs(t, err, listing.ErrFetchFailed)
		assert.Equal(t, StateFailed, res.State)
		assert.Equal(t, StageFetch, res.ErrorStage)
		h.content.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("empty url", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.orch.Import(context.Background(), Request{URL: " ", CategoryID: "baby"})
		assert.Equal(t, KindFetch, KindOf(err))
		h.fetcher.AssertNotCalled(t, "FetchListing", mock.Anything, mock.Anything)
	})

	t.Run("out of stock", func(t *testing.T) {
		h := newHarness(t)
		l := testListing()
		for i := range l.Variants {
			l.Variants[i].Stock = 0
		}
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(l, nil)

		res, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		assert.Equal(t, KindOutOfStock, KindOf(err))
		assert.False(t, res.Success)
		assert.Empty(t, h.assets.uploads)
		h.content.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid pricing configuration", func(t *testing.T) {
		h := newHarness(t)
		bad := pricing.DefaultConfig("bad")
		bad.MarkupFactor = decimal.RequireFromString("0.5")
		h.configs.configs["bad"] = bad
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)

		_, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "bad"})
		assert.Equal(t, KindInvalidConfiguration, KindOf(err))
		assert.ErrorIs(t, err, pricing.ErrInvalidConfiguration)
	})

	t.Run("overridden price outside bounds", func(t *testing.T) {
		h := newHarness(t)
		cfg := pricing.DefaultConfig("bounded")
		cfg.MaxPrice = decimal.NewNullDecimal(decimal.NewFromInt(50))
		h.configs.configs["bounded"] = cfg
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)

		price := decimal.NewFromInt(80)
		res, err := h.orch.Import(context.Background(), Request{
			URL: itemURL, CategoryID: "bounded", Overrides: &catalog.Overrides{Price: &price},
		})
		assert.Equal(t, KindInvalidConfiguration, KindOf(err))
		assert.Equal(t, "50.00", res.ErrorDetails["adjusted_price"])
	})

	t.Run("content store failure", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)
		h.content.On("Create", mock.Anything, mock.Anything).Return("", errors.New("mongo down"))

		_, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		assert.Equal(t, KindContentStoreWrite, KindOf(err))
		assert.ErrorIs(t, err, catalog.ErrContentWrite)
		assert.Empty(t, h.sources.sources)
		assert.Empty(t, h.assets.uploads, "uploaded images are discarded")
	})
}

func TestOrchestrator_Import_Compensation(t *testing.T) {
	t.Run("relational failure deletes the document", func(t *testing.T) {
		h := newHarness(t)
		h.products.createErr = errors.New("connection reset")
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)
		h.content.On("Create", mock.Anything, mock.Anything).Return("doc-1", nil)
		h.content.On("Delete", mock.Anything, "doc-1").Return(nil)

		res, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		assert.Equal(t, KindRelationalWrite, KindOf(err))
		assert.Equal(t, StageRelational, res.ErrorStage)
		assert.Equal(t, "doc-1", res.ErrorDetails["content_doc_id"])
		h.content.AssertCalled(t, "Delete", mock.Anything, "doc-1")
		h.content.AssertNotCalled(t, "SetStatus", mock.Anything, "doc-1", catalog.DocumentPublished)
		assert.Empty(t, h.assets.uploads)
	})

	t.Run("failed delete marks the document orphaned", func(t *testing.T) {
		h := newHarness(t)
		h.products.createErr = errors.New("connection reset")
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)
		h.content.On("Create", mock.Anything, mock.Anything).Return("doc-1", nil)
		h.content.On("Delete", mock.Anything, "doc-1").Return(errors.New("timeout"))
		h.content.On("SetStatus", mock.Anything, "doc-1", catalog.DocumentOrphaned).Return(nil)

		_, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		assert.Equal(t, KindRelationalWrite, KindOf(err))
		h.content.AssertCalled(t, "SetStatus", mock.Anything, "doc-1", catalog.DocumentOrphaned)
		assert.Len(t, h.assets.uploads, 2, "orphaned documents keep their images")
	})

	t.Run("duplicate import", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)
		h.content.On("Create", mock.Anything, mock.Anything).Return("doc-1", nil).Once()
		h.content.On("Create", mock.Anything, mock.Anything).Return("doc-2", nil).Once()
		h.content.On("SetStatus", mock.Anything, "doc-1", catalog.DocumentPublished).Return(nil)
		h.content.On("Delete", mock.Anything, "doc-2").Return(nil)

		_, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		require.NoError(t, err)

		res, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		assert.Equal(t, KindDuplicateImport, KindOf(err))
		assert.Equal(t, "1005001", res.ErrorDetails["source_product_id"])
		h.content.AssertCalled(t, "Delete", mock.Anything, "doc-2")
		assert.Equal(t, "doc-1", h.sources.sources["1005001"].ContentDocID)
		assert.Len(t, h.assets.uploads, 2, "images of the first import survive")
	})

	t.Run("orphan mode skips the delete", func(t *testing.T) {
		h := newHarness(t)
		h.orch.cfg.Compensation = CompensateMarkOrphaned
		h.products.createErr = errors.New("connection reset")
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)
		h.content.On("Create", mock.Anything, mock.Anything).Return("doc-1", nil)
		h.content.On("SetStatus", mock.Anything, "doc-1", catalog.DocumentOrphaned).Return(nil)

		_, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		assert.Equal(t, KindRelationalWrite, KindOf(err))
		h.content.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestOrchestrator_Import_Warnings(t *testing.T) {
	codes := func(ws []Warning) []WarningCode {
		out := make([]WarningCode, 0, len(ws))
		for _, w := range ws {
			out = append(out, w.Code)
		}
		return out
	}

	t.Run("publish failure keeps the import", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)
		h.content.On("Create", mock.Anything, mock.Anything).Return("doc-1", nil)
		h.content.On("SetStatus", mock.Anything, "doc-1", catalog.DocumentPublished).Return(errors.New("timeout"))

		res, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		require.NoError(t, err)
		assert.Equal(t, StateSucceededWithWarnings, res.State)
		assert.Contains(t, codes(res.Warnings), WarnPublishFailed)
		assert.Contains(t, h.sources.sources, "1005001")
	})

	t.Run("image failures and defaults", func(t *testing.T) {
		h := newHarness(t)
		h.download.fail["https://img.example/a.jpg"] = true
		l := testListing()
		l.Variants[1].Stock = 0
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(l, nil)
		h.content.On("Create", mock.Anything, mock.MatchedBy(func(d *catalog.ContentDocument) bool {
			return len(d.Images) == 1 && d.Images[0].Primary && d.Images[0].Index == 1
		})).Return("doc-1", nil)
		h.content.On("SetStatus", mock.Anything, "doc-1", catalog.DocumentPublished).Return(nil)

		res, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "unknown"})
		require.NoError(t, err)
		assert.Equal(t, StateSucceededWithWarnings, res.State)
		assert.ElementsMatch(t, []WarningCode{WarnLowStock, WarnDefaultPricing, WarnImagePartialFailure}, codes(res.Warnings))
	})

	t.Run("thin margin and no images", func(t *testing.T) {
		h := newHarness(t)
		cfg := pricing.DefaultConfig("thin")
		cfg.MarkupFactor = decimal.RequireFromString("1.1")
		cfg.ShippingBuffer = decimal.Zero
		cfg.PlatformFee = decimal.Zero
		cfg.RoundingIncrement = decimal.Zero
		h.configs.configs["thin"] = cfg
		l := testListing()
		l.ImageURLs = nil
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(l, nil)
		h.content.On("Create", mock.Anything, mock.Anything).Return("doc-1", nil)
		h.content.On("SetStatus", mock.Anything, "doc-1", catalog.DocumentPublished).Return(nil)

		res, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "thin"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []WarningCode{WarnThinMargin, WarnPrice, WarnNoImages}, codes(res.Warnings))
	})

	t.Run("existing slug skips product rows", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)
		h.content.On("Create", mock.Anything, mock.Anything).Return("doc-1", nil).Once()
		h.content.On("Create", mock.Anything, mock.Anything).Return("doc-2", nil).Once()
		h.content.On("SetStatus", mock.Anything, mock.Anything, catalog.DocumentPublished).Return(nil)

		first, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		require.NoError(t, err)
		assert.NotContains(t, codes(first.Warnings), WarnExistingProduct)

		// The source record is gone but the product rows remain
		delete(h.sources.sources, "1005001")
		second, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		require.NoError(t, err)
		assert.Equal(t, first.Slug, second.Slug)
		assert.Contains(t, codes(second.Warnings), WarnExistingProduct)
		assert.Len(t, h.products.rows, 1)
		assert.Equal(t, "doc-1", h.products.rows[first.Slug].Product.ContentDocID)
	})
}

func TestOrchestrator_Preview(t *testing.T) {
	h := newHarness(t)
	h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)

	name := "Custom Romper"
	preview, err := h.orch.Preview(context.Background(), Request{
		URL: itemURL, CategoryID: "baby", Overrides: &catalog.Overrides{Name: &name},
	})
	require.NoError(t, err)

	assert.Equal(t, "Custom Romper", preview.Product.Name)
	assert.Equal(t, listing.AvailabilityInStock, preview.Stock.Availability)
	assert.True(t, decimal.RequireFromString("28.99").Equal(preview.Price.Final))
	assert.True(t, decimal.RequireFromString("29.4").Equal(preview.Price.WithFees))
	assert.True(t, preview.Validation.IsValid)
	assert.Len(t, preview.Images, 2)
	assert.Empty(t, h.assets.uploads)
	assert.Len(t, h.preview.uploads, 2)
	h.content.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, h.sources.sources)
}

func TestOrchestrator_Preview_OverriddenPrice(t *testing.T) {
	h := newHarness(t)
	h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)

	price := decimal.RequireFromString("34.99")
	preview, err := h.orch.Preview(context.Background(), Request{
		URL: itemURL, CategoryID: "baby", Overrides: &catalog.Overrides{Price: &price},
	})
	require.NoError(t, err)

	assert.True(t, preview.Price.Overridden)
	assert.True(t, price.Equal(preview.Price.Final))
	assert.True(t, preview.Product.Price.Equal(preview.Price.Final))
	assert.True(t, decimal.RequireFromString("28.99").Equal(preview.Price.Rounded))
	assert.True(t, preview.Margin.Margin.Equal(price.Sub(decimal.RequireFromString("10.00"))))
}

func TestOrchestrator_StableAssetKeys(t *testing.T) {
	h := newHarness(t)
	h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)

	var keys [][]string
	for i := 0; i < 2; i++ {
		preview, err := h.orch.Preview(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		require.NoError(t, err)
		run := make([]string, 0, len(preview.Images))
		for _, img := range preview.Images {
			run = append(run, img.AssetID)
		}
		keys = append(keys, run)
	}

	assert.Equal(t, keys[0], keys[1])
	assert.Len(t, h.preview.uploads, 2, "repeated runs overwrite the same objects")
	productID := ProductIDFor(testListing())
	for _, key := range keys[0] {
		assert.True(t, strings.HasPrefix(key, "products/"+productID+"/"), key)
	}
}

func TestProductIDFor(t *testing.T) {
	a := testListing()
	b := testListing()
	b.Title = "Renamed"
	assert.Equal(t, ProductIDFor(a), ProductIDFor(b))

	b.ExternalID = "1005002"
	assert.NotEqual(t, ProductIDFor(a), ProductIDFor(b))

	noID := testListing()
	noID.ExternalID = ""
	assert.NotEmpty(t, ProductIDFor(noID))
	assert.NotEqual(t, ProductIDFor(a), ProductIDFor(noID))
}

func TestOrchestrator_Import_ExistingDocument(t *testing.T) {
	docExists := fmt.Errorf("%w: %w", catalog.ErrContentWrite, catalog.ErrDocumentExists)
	productID := ProductIDFor(testListing())

	t.Run("published document is a duplicate and stays untouched", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)
		h.content.On("Create", mock.Anything, mock.Anything).Return("", docExists)
		h.content.On("Get", mock.Anything, productID).Return(&catalog.ContentDocument{ID: productID, Status: catalog.DocumentPublished}, nil)

		res, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		assert.Equal(t, KindDuplicateImport, KindOf(err))
		assert.Equal(t, StageContent, res.ErrorStage)
		assert.Equal(t, "1005001", res.ErrorDetails["source_product_id"])
		h.content.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		h.content.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
		assert.Len(t, h.assets.uploads, 2, "images belong to the stored document")
		assert.Empty(t, h.sources.sources)
	})

	t.Run("orphaned document is replaced", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.On("FetchListing", mock.Anything, itemURL).Return(testListing(), nil)
		h.content.On("Create", mock.Anything, mock.Anything).Return("", docExists).Once()
		h.content.On("Create", mock.Anything, mock.Anything).Return(productID, nil).Once()
		h.content.On("Get", mock.Anything, productID).Return(&catalog.ContentDocument{ID: productID, Status: catalog.DocumentOrphaned}, nil)
		h.content.On("Delete", mock.Anything, productID).Return(nil)
		h.content.On("SetStatus", mock.Anything, productID, catalog.DocumentPublished).Return(nil)

		res, err := h.orch.Import(context.Background(), Request{URL: itemURL, CategoryID: "baby"})
		require.NoError(t, err)
		assert.Equal(t, productID, res.ContentDocID)
		h.content.AssertNumberOfCalls(t, "Create", 2)
		h.content.AssertCalled(t, "Delete", mock.Anything, productID)
		assert.Equal(t, productID, h.sources.sources["1005001"].ContentDocID)
	})
}

func TestOrchestrator_FindSource(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.FindSource(context.Background(), "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
