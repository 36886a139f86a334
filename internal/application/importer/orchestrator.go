// Package importer coordinates the import of marketplace listings into the catalog.
//
// A committed import writes to two independent stores. The content document is written
// first in pending status, then the relational rows in one transaction. A relational
// failure compensates by deleting the document (or marking it orphaned), and only a
// successful commit publishes the document.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/media"
	"github.com/storefront/backend/internal/application/transform"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/listing"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/sourcing"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// productNamespace scopes the name-based product ids derived from source listings
var productNamespace = uuid.MustParse("6f1c2d0e-8b4a-5c3e-9d7f-2a6b4e8c1f30")

// ProductIDFor returns the stable product id of a source listing. It is the content
// document id, the relational product id and the prefix of the listing's asset keys,
// so repeated runs of one listing address the same objects.
func ProductIDFor(l *listing.SourceListing) string {
	key := l.ExternalID
	if strings.TrimSpace(key) == "" {
		key = l.SourceURL
	}
	return uuid.NewSHA1(productNamespace, []byte(key)).String()
}

// CompensationMode selects how a pending content document is undone
type CompensationMode string

const (
	// CompensateDelete deletes the document and falls back to marking it orphaned
	CompensateDelete CompensationMode = "delete"
	// CompensateMarkOrphaned keeps the document for reconciliation
	CompensateMarkOrphaned CompensationMode = "orphan"
)

// Config tunes the orchestrator
type Config struct {
	FetchTimeout      time.Duration
	StoreTimeout      time.Duration
	ThinMarginPercent decimal.Decimal
	Compensation      CompensationMode
}

// DefaultConfig returns the orchestrator defaults
func DefaultConfig() Config {
	return Config{
		FetchTimeout:      30 * time.Second,
		StoreTimeout:      10 * time.Second,
		ThinMarginPercent: decimal.NewFromInt(20),
		Compensation:      CompensateDelete,
	}
}

// Metrics records import outcomes
type Metrics interface {
	RecordImport(ctx context.Context, state, kind string, duration time.Duration)
	RecordImages(ctx context.Context, processed, failed int)
}

type noopMetrics struct{}

func (noopMetrics) RecordImport(context.Context, string, string, time.Duration) {}
func (noopMetrics) RecordImages(context.Context, int, int)                      {}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithConfig sets the orchestrator configuration
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		def := DefaultConfig()
		if cfg.FetchTimeout <= 0 {
			cfg.FetchTimeout = def.FetchTimeout
		}
		if cfg.StoreTimeout <= 0 {
			cfg.StoreTimeout = def.StoreTimeout
		}
		if cfg.ThinMarginPercent.IsZero() {
			cfg.ThinMarginPercent = def.ThinMarginPercent
		}
		if cfg.Compensation == "" {
			cfg.Compensation = def.Compensation
		}
		o.cfg = cfg
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithPreviewAssetStore sets the asset store used by previews, normally one that keeps nothing
func WithPreviewAssetStore(store catalog.AssetStore) Option {
	return func(o *Orchestrator) {
		o.previewStore = store
	}
}

// Dependencies are the collaborators of an Orchestrator
type Dependencies struct {
	Fetcher        listing.Fetcher
	StockValidator listing.StockValidator
	PricingConfigs pricing.ConfigRepository
	Calculator     *pricing.Calculator
	Transformer    *transform.Transformer
	Images         *media.Processor
	AssetStore     catalog.AssetStore
	ContentStore   catalog.ContentStore
	TxScope        TransactionScope
	SourceRepo     sourcing.ProductSourceRepository
}

// Orchestrator runs the import pipeline
type Orchestrator struct {
	deps         Dependencies
	cfg          Config
	previewStore catalog.AssetStore
	metrics      Metrics
	logger       *zap.Logger
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(deps Dependencies, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:    deps,
		cfg:     DefaultConfig(),
		metrics: noopMetrics{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.deps.Calculator == nil {
		o.deps.Calculator = pricing.NewCalculator()
	}
	if o.deps.Transformer == nil {
		o.deps.Transformer = transform.NewTransformer(o.deps.Calculator)
	}
	if o.deps.StockValidator == nil {
		o.deps.StockValidator = listing.NewThresholdStockValidator(listing.DefaultLowStockThreshold)
	}
	return o
}

// prepared is the state shared by preview and commit after stage 4
type prepared struct {
	productID  string
	listing    *listing.SourceListing
	stock      listing.StockSummary
	config     pricing.CategoryPricingConfig
	breakdown  pricing.Breakdown
	margin     pricing.Margin
	validation pricing.Validation
	product    *catalog.TransformedProduct
	images     []catalog.ProcessedImage
	warnings   []Warning
}

// Import fetches, transforms and persists one listing. Failures are reported in the
// result, never as a panic; the returned error mirrors a failed result for callers
// that prefer error handling.
func (o *Orchestrator) Import(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	importID := uuid.NewString()
	ctx, log := logger.WithImportID(ctx, o.logger, importID)
	log = log.With(zap.String("url", req.URL))

	ctx, span := telemetry.StartServiceSpan(ctx, "importer", "import")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrImportID, importID,
		telemetry.SpanAttrSourceURL, req.URL,
		telemetry.SpanAttrCategoryID, req.CategoryID,
	)

	result := &Result{ImportID: importID, Warnings: []Warning{}}
	finish := func(ierr *ImportError) (*Result, error) {
		result.Duration = time.Since(start)
		if ierr != nil {
			result.fail(ierr)
			telemetry.RecordError(span, ierr)
			log.Error("Import failed",
				zap.String("kind", string(ierr.Kind)),
				zap.String("stage", string(ierr.Stage)),
				zap.Error(ierr))
			o.metrics.RecordImport(ctx, string(result.State), string(ierr.Kind), result.Duration)
			return result, ierr
		}
		result.succeed()
		telemetry.SetOK(span)
		log.Info("Import finished",
			zap.String("state", string(result.State)),
			zap.String("content_doc_id", result.ContentDocID),
			zap.Int("warnings", len(result.Warnings)),
			zap.Duration("duration", result.Duration))
		o.metrics.RecordImport(ctx, string(result.State), "", result.Duration)
		return result, nil
	}

	prep, ierr := o.prepare(ctx, req, o.deps.Images, log)
	if ierr != nil {
		return finish(ierr)
	}
	result.Warnings = append(result.Warnings, prep.warnings...)
	result.Slug = prep.product.Slug

	// Stage 5: content document, pending until the relational rows exist
	docID, ierr := o.writeContent(ctx, prep, log)
	if ierr != nil {
		// A duplicate shares its asset keys with the stored document
		if ierr.Kind != KindDuplicateImport {
			o.discardAssets(ctx, prep.images, log)
		}
		return finish(ierr)
	}
	result.ContentDocID = docID
	telemetry.AddEvent(span, "content_document_created", "content_doc_id", docID)

	// Stages 6-8: relational rows in one transaction
	sourceID, productCreated, ierr := o.writeRelational(ctx, docID, prep)
	if ierr != nil {
		images := prep.images
		if ierr.Kind == KindDuplicateImport {
			images = nil
		}
		o.compensate(ctx, docID, images, log)
		return finish(ierr.withDetail("content_doc_id", docID))
	}
	result.SourceRecordID = sourceID
	if !productCreated {
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarnExistingProduct,
			Message: fmt.Sprintf("a product with slug %q already exists; variant rows were not created", prep.product.Slug),
		})
	}

	// Stage 9: publish
	if err := o.publish(ctx, docID); err != nil {
		log.Warn("Content document left pending", zap.String("content_doc_id", docID), zap.Error(err))
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarnPublishFailed,
			Message: "content document could not be published and remains pending: " + err.Error(),
		})
	}
	return finish(nil)
}

// Preview runs fetch, stock validation, transformation and image processing without persisting.
// Images are processed against the preview asset store.
func (o *Orchestrator) Preview(ctx context.Context, req Request) (*Preview, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "importer", "preview")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrSourceURL, req.URL, telemetry.SpanAttrCategoryID, req.CategoryID)

	processor := o.deps.Images
	if processor != nil && o.previewStore != nil {
		processor = processor.WithStore(o.previewStore)
	}

	prep, ierr := o.prepare(ctx, req, processor, o.logger.With(zap.String("url", req.URL), zap.Bool("preview", true)))
	if ierr != nil {
		telemetry.RecordError(span, ierr)
		return nil, ierr
	}
	telemetry.SetOK(span)
	return &Preview{
		Product:    prep.product,
		Stock:      prep.stock,
		Price:      prep.breakdown,
		Margin:     prep.margin,
		Validation: prep.validation,
		Images:     prep.images,
		Warnings:   prep.warnings,
	}, nil
}

// prepare runs stages 1-4
func (o *Orchestrator) prepare(ctx context.Context, req Request, processor *media.Processor, log *zap.Logger) (*prepared, *ImportError) {
	prep := &prepared{warnings: []Warning{}}

	// Stage 1: fetch
	l, ierr := o.fetch(ctx, req.URL)
	if ierr != nil {
		return nil, ierr
	}
	prep.listing = l
	prep.productID = ProductIDFor(l)
	log.Debug("Listing fetched", zap.String("source_product_id", l.ExternalID), zap.Int("variants", len(l.Variants)))

	// Stage 2: stock
	prep.stock = o.deps.StockValidator.Validate(l)
	switch prep.stock.Availability {
	case listing.AvailabilityOutOfStock:
		return nil, newImportError(KindOutOfStock, StageStock, "listing has no stock in any variant", nil).
			withDetail("total_variants", prep.stock.TotalVariants)
	case listing.AvailabilityLowStock, listing.AvailabilityPartial:
		prep.warnings = append(prep.warnings, Warning{
			Code: WarnLowStock,
			Message: fmt.Sprintf("stock is %s: %d units across %d of %d variants",
				prep.stock.Availability, prep.stock.TotalStock, prep.stock.AvailableVariants, prep.stock.TotalVariants),
		})
	}

	// Stage 3: pricing and transformation
	if ierr := o.transform(ctx, req, prep); ierr != nil {
		return nil, ierr
	}

	// Stage 4: images
	if processor != nil {
		o.processImages(ctx, processor, prep, log)
	}
	return prep, nil
}

func (o *Orchestrator) fetch(ctx context.Context, rawURL string) (*listing.SourceListing, *ImportError) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, newImportError(KindFetch, StageFetch, "source url is required", listing.ErrInvalidURL)
	}
	fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	defer cancel()

	l, err := o.deps.Fetcher.FetchListing(fetchCtx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newImportError(KindCancelled, StageFetch, "import cancelled", ctx.Err())
		}
		return nil, newImportError(KindFetch, StageFetch, "could not fetch listing", err)
	}
	if l == nil {
		return nil, newImportError(KindFetch, StageFetch, "fetcher returned no listing", listing.ErrInvalidResponse)
	}
	return l, nil
}

func (o *Orchestrator) loadPricing(ctx context.Context, categoryID string, prep *prepared) *ImportError {
	if strings.TrimSpace(categoryID) == "" {
		return newImportError(KindInvalidConfiguration, StageTransform, "category id is required", pricing.ErrInvalidConfiguration)
	}
	if o.deps.PricingConfigs == nil {
		prep.config = pricing.DefaultConfig(categoryID)
		return nil
	}
	cfg, err := o.deps.PricingConfigs.FindByCategory(ctx, categoryID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		prep.config = pricing.DefaultConfig(categoryID)
		prep.warnings = append(prep.warnings, Warning{
			Code:    WarnDefaultPricing,
			Message: fmt.Sprintf("no pricing configuration for category %q; defaults applied", categoryID),
		})
	case err != nil:
		return newImportError(KindInvalidConfiguration, StageTransform, "could not load pricing configuration", err)
	default:
		prep.config = *cfg
	}
	return nil
}

func (o *Orchestrator) transform(ctx context.Context, req Request, prep *prepared) *ImportError {
	if ierr := o.loadPricing(ctx, req.CategoryID, prep); ierr != nil {
		return ierr
	}
	cfg := prep.config
	calc := o.deps.Calculator

	breakdown, err := calc.Breakdown(prep.listing.Cost.Amount(), cfg)
	if err != nil {
		return newImportError(KindInvalidConfiguration, StageTransform, "pricing failed", err)
	}
	prep.breakdown = breakdown

	product, err := o.deps.Transformer.Transform(prep.listing, cfg)
	if err != nil {
		return newImportError(KindInvalidConfiguration, StageTransform, "transformation failed", err)
	}

	oldPrice := product.Price
	if req.Overrides.Apply(product) {
		if err := o.deps.Transformer.Reprice(product, oldPrice, cfg); err != nil {
			return newImportError(KindInvalidConfiguration, StageTransform, "overridden price rejected", err)
		}
		prep.breakdown = prep.breakdown.WithOverride(product.Price)
	}

	prep.validation = calc.Validate(product.Price, cfg)
	if !prep.validation.IsValid {
		ierr := newImportError(KindInvalidConfiguration, StageTransform,
			"price failed validation: "+strings.Join(prep.validation.Errors, "; "), pricing.ErrInvalidConfiguration)
		if prep.validation.AdjustedPrice.Valid {
			ierr.withDetail("adjusted_price", prep.validation.AdjustedPrice.Decimal.StringFixed(2))
		}
		return ierr
	}
	for _, w := range prep.validation.Warnings {
		prep.warnings = append(prep.warnings, Warning{Code: WarnPrice, Message: w})
	}
	for _, v := range product.Variants {
		vv := calc.Validate(v.Price, cfg)
		if !vv.IsValid {
			return newImportError(KindInvalidConfiguration, StageTransform,
				fmt.Sprintf("variant %s price failed validation: %s", v.SKU, strings.Join(vv.Errors, "; ")),
				pricing.ErrInvalidConfiguration).withDetail("sku", v.SKU)
		}
	}

	prep.margin = calc.Margin(product.CostPrice, product.Price)
	if prep.margin.MarginPercentage.LessThan(o.cfg.ThinMarginPercent) {
		prep.warnings = append(prep.warnings, Warning{
			Code: WarnThinMargin,
			Message: fmt.Sprintf("margin %s%% is below %s%%",
				prep.margin.MarginPercentage.StringFixed(2), o.cfg.ThinMarginPercent.String()),
		})
	}
	prep.product = product
	return nil
}

func (o *Orchestrator) processImages(ctx context.Context, processor *media.Processor, prep *prepared, log *zap.Logger) {
	urls := prep.product.ImageURLs
	if limit := processor.Options().MaxImages; len(urls) > limit {
		urls = urls[:limit]
	}

	images, err := processor.ProcessAll(ctx, urls, prep.productID)
	prep.images = images
	failed := len(urls) - len(images)
	o.metrics.RecordImages(ctx, len(images), failed)

	switch {
	case err != nil:
		log.Warn("Image batch ended early", zap.Int("processed", len(images)), zap.Error(err))
		prep.warnings = append(prep.warnings, Warning{Code: WarnImageBatchTimeout, Message: err.Error()})
	case failed > 0:
		prep.warnings = append(prep.warnings, Warning{
			Code:    WarnImagePartialFailure,
			Message: fmt.Sprintf("%d of %d images could not be processed", failed, len(urls)),
		})
	}
	if len(images) == 0 {
		prep.warnings = append(prep.warnings, Warning{Code: WarnNoImages, Message: "product has no images"})
	}
}

// writeContent creates the pending document. A document left orphaned by an earlier
// failed import of the same listing is replaced; any other existing document means
// the listing was already imported.
func (o *Orchestrator) writeContent(ctx context.Context, prep *prepared, log *zap.Logger) (string, *ImportError) {
	if err := ctx.Err(); err != nil {
		return "", newImportError(KindCancelled, StageContent, "import cancelled", err)
	}
	storeCtx, cancel := context.WithTimeout(ctx, o.cfg.StoreTimeout)
	defer cancel()

	doc := catalog.NewContentDocument(prep.product, prep.images)
	doc.ID = prep.productID
	id, err := o.deps.ContentStore.Create(storeCtx, doc)
	if errors.Is(err, catalog.ErrDocumentExists) && o.reclaimOrphan(storeCtx, prep.productID, log) {
		id, err = o.deps.ContentStore.Create(storeCtx, doc)
	}
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, catalog.ErrDocumentExists):
		return "", newImportError(KindDuplicateImport, StageContent, "listing was already imported", err).
			withDetail("source_product_id", prep.product.SourceProductID).
			withDetail("content_doc_id", prep.productID)
	default:
		return "", newImportError(KindContentStoreWrite, StageContent, "could not create content document",
			fmt.Errorf("%w: %w", catalog.ErrContentWrite, err))
	}
}

// reclaimOrphan deletes an orphaned document so its id can be reused
func (o *Orchestrator) reclaimOrphan(ctx context.Context, docID string, log *zap.Logger) bool {
	existing, err := o.deps.ContentStore.Get(ctx, docID)
	if err != nil || existing.Status != catalog.DocumentOrphaned {
		return false
	}
	if err := o.deps.ContentStore.Delete(ctx, docID); err != nil && !errors.Is(err, catalog.ErrDocumentNotFound) {
		log.Warn("Orphaned content document could not be replaced", zap.String("content_doc_id", docID), zap.Error(err))
		return false
	}
	log.Info("Replacing orphaned content document", zap.String("content_doc_id", docID))
	return true
}

func (o *Orchestrator) writeRelational(ctx context.Context, docID string, prep *prepared) (string, bool, *ImportError) {
	storeCtx, cancel := context.WithTimeout(ctx, o.cfg.StoreTimeout)
	defer cancel()

	var (
		sourceID       string
		productCreated bool
	)
	err := o.deps.TxScope.Execute(storeCtx, func(repos TransactionalRepositories) error {
		seller := prep.listing.Seller
		externalID := seller.ID
		if externalID == "" {
			externalID = "unknown"
		}
		supplier, err := sourcing.NewSupplier(externalID, seller.Name, seller.StoreURL)
		if err != nil {
			return err
		}
		supplier.WithStats(seller.Rating, seller.OrderCount)
		stored, err := repos.SupplierRepo().Upsert(storeCtx, supplier)
		if err != nil {
			return fmt.Errorf("upsert supplier: %w", err)
		}

		ps := sourcing.NewProductSource(docID, stored.ID, prep.product, prep.stock)
		if err := repos.ProductSourceRepo().Create(storeCtx, ps); err != nil {
			return fmt.Errorf("create product source: %w", err)
		}
		sourceID = ps.ID.String()

		exists, err := repos.ProductRepo().ExistsBySlug(storeCtx, prep.product.Slug)
		if err != nil {
			return fmt.Errorf("check slug: %w", err)
		}
		if exists {
			return nil
		}
		if err := repos.ProductRepo().CreateRows(storeCtx, sourcing.BuildProductRows(docID, ps.ID, prep.product)); err != nil {
			return fmt.Errorf("create product rows: %w", err)
		}
		productCreated = true
		return nil
	})
	if err != nil {
		if errors.Is(err, sourcing.ErrDuplicateSource) || errors.Is(err, sourcing.ErrDuplicateProduct) {
			return "", false, newImportError(KindDuplicateImport, StageRelational, "listing was already imported", err).
				withDetail("source_product_id", prep.product.SourceProductID)
		}
		return "", false, newImportError(KindRelationalWrite, StageRelational, "could not write relational records", err)
	}
	return sourceID, productCreated, nil
}

// compensate undoes a pending content document after the relational transaction failed.
// It runs on a detached context so a cancelled import still cleans up.
func (o *Orchestrator) compensate(ctx context.Context, docID string, images []catalog.ProcessedImage, log *zap.Logger) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.StoreTimeout)
	defer cancel()
	log = log.With(zap.String("content_doc_id", docID))

	if o.cfg.Compensation == CompensateDelete {
		err := o.deps.ContentStore.Delete(cctx, docID)
		if err == nil || errors.Is(err, catalog.ErrDocumentNotFound) {
			log.Info("Compensated content document by deletion")
			o.discardAssets(cctx, images, log)
			return
		}
		log.Warn("Content document delete failed, marking orphaned", zap.Error(err))
	}
	if err := o.deps.ContentStore.SetStatus(cctx, docID, catalog.DocumentOrphaned); err != nil {
		log.Error("Content document could not be compensated", zap.Error(err))
		return
	}
	log.Info("Content document marked orphaned")
}

// discardAssets removes uploaded images that no document references. Failures are only logged.
func (o *Orchestrator) discardAssets(ctx context.Context, images []catalog.ProcessedImage, log *zap.Logger) {
	if o.deps.AssetStore == nil {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.StoreTimeout)
	defer cancel()
	for _, img := range images {
		if err := o.deps.AssetStore.Delete(cctx, img.AssetID); err != nil && !errors.Is(err, catalog.ErrAssetNotFound) {
			log.Warn("Image asset left behind", zap.String("asset_id", img.AssetID), zap.Error(err))
		}
	}
}

func (o *Orchestrator) publish(ctx context.Context, docID string) error {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.StoreTimeout)
	defer cancel()
	return o.deps.ContentStore.SetStatus(pctx, docID, catalog.DocumentPublished)
}

// FindSource returns the source-tracking record of an imported listing
func (o *Orchestrator) FindSource(ctx context.Context, sourceProductID string) (*sourcing.ProductSource, error) {
	if o.deps.SourceRepo == nil {
		return nil, shared.ErrNotFound
	}
	return o.deps.SourceRepo.FindBySourceProductID(ctx, sourceProductID)
}
