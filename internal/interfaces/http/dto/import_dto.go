package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/application/importer"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/sourcing"
	"github.com/storefront/backend/internal/infrastructure/sheet"
)

// ErrorCodeForKind maps an import failure kind to its API error code
func ErrorCodeForKind(kind importer.ErrorKind) string {
	switch kind {
	case importer.KindFetch:
		return ErrCodeFetchFailed
	case importer.KindOutOfStock:
		return ErrCodeOutOfStock
	case importer.KindInvalidConfiguration:
		return ErrCodeInvalidConfiguration
	case importer.KindDuplicateImport:
		return ErrCodeDuplicateImport
	case importer.KindContentStoreWrite, importer.KindRelationalWrite:
		return ErrCodeStoreWrite
	case importer.KindCancelled:
		return ErrCodeCancelled
	default:
		return ErrCodeInternal
	}
}

// BulkImportResponse is the outcome of a bulk import upload
type BulkImportResponse struct {
	Filename    string                `json:"filename"`
	Summary     *importer.BulkSummary `json:"summary"`
	RowErrors   []sheet.RowError      `json:"row_errors,omitempty"`
	TotalErrors int                   `json:"total_errors"`
}

// PricingConfigRequest replaces the pricing rules of a category.
// Amounts are decimal strings so no precision is lost in transit.
type PricingConfigRequest struct {
	CategoryName      string           `json:"category_name" binding:"max=128"`
	MarkupFactor      decimal.Decimal  `json:"markup_factor"`
	ShippingBuffer    decimal.Decimal  `json:"shipping_buffer"`
	PlatformFee       decimal.Decimal  `json:"platform_fee"`
	RoundingIncrement *decimal.Decimal `json:"rounding_increment"`
	MinPrice          *decimal.Decimal `json:"min_price"`
	MaxPrice          *decimal.Decimal `json:"max_price"`
}

// ToConfig builds the domain configuration. An omitted rounding increment keeps the .99 default.
func (r PricingConfigRequest) ToConfig(categoryID string) pricing.CategoryPricingConfig {
	cfg := pricing.DefaultConfig(categoryID)
	cfg.CategoryName = r.CategoryName
	cfg.MarkupFactor = r.MarkupFactor
	cfg.ShippingBuffer = r.ShippingBuffer
	cfg.PlatformFee = r.PlatformFee
	if r.RoundingIncrement != nil {
		cfg.RoundingIncrement = *r.RoundingIncrement
	}
	if r.MinPrice != nil {
		cfg.MinPrice = decimal.NewNullDecimal(*r.MinPrice)
	}
	if r.MaxPrice != nil {
		cfg.MaxPrice = decimal.NewNullDecimal(*r.MaxPrice)
	}
	return cfg
}

// PricingConfigResponse is the pricing configuration of a category
type PricingConfigResponse struct {
	CategoryID        string           `json:"category_id"`
	CategoryName      string           `json:"category_name,omitempty"`
	MarkupFactor      decimal.Decimal  `json:"markup_factor"`
	ShippingBuffer    decimal.Decimal  `json:"shipping_buffer"`
	PlatformFee       decimal.Decimal  `json:"platform_fee"`
	RoundingIncrement decimal.Decimal  `json:"rounding_increment"`
	MinPrice          *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice          *decimal.Decimal `json:"max_price,omitempty"`
	IsDefault         bool             `json:"is_default"`
}

// NewPricingConfigResponse converts a domain configuration
func NewPricingConfigResponse(cfg pricing.CategoryPricingConfig, isDefault bool) PricingConfigResponse {
	resp := PricingConfigResponse{
		CategoryID:        cfg.CategoryID,
		CategoryName:      cfg.CategoryName,
		MarkupFactor:      cfg.MarkupFactor,
		ShippingBuffer:    cfg.ShippingBuffer,
		PlatformFee:       cfg.PlatformFee,
		RoundingIncrement: cfg.RoundingIncrement,
		IsDefault:         isDefault,
	}
	if cfg.MinPrice.Valid {
		v := cfg.MinPrice.Decimal
		resp.MinPrice = &v
	}
	if cfg.MaxPrice.Valid {
		v := cfg.MaxPrice.Decimal
		resp.MaxPrice = &v
	}
	return resp
}

// ProductSourceResponse is the source-tracking record of an imported listing
type ProductSourceResponse struct {
	ID                string                   `json:"id"`
	ContentDocID      string                   `json:"content_doc_id"`
	SourceProductID   string                   `json:"source_product_id"`
	SourceURL         string                   `json:"source_url"`
	SupplierID        string                   `json:"supplier_id"`
	CategoryID        string                   `json:"category_id"`
	OriginalImageURLs []string                 `json:"original_image_urls"`
	VariantMappings   []catalog.VariantMapping `json:"variant_mappings"`
	CostPrice         decimal.Decimal          `json:"cost_price"`
	RetailPrice       decimal.Decimal          `json:"retail_price"`
	Currency          string                   `json:"currency"`
	SourceStatus      string                   `json:"source_status"`
	InventoryStatus   string                   `json:"inventory_status"`
	LastSyncedAt      time.Time                `json:"last_synced_at"`
	CreatedAt         time.Time                `json:"created_at"`
}

// NewProductSourceResponse converts a domain record
func NewProductSourceResponse(ps *sourcing.ProductSource) ProductSourceResponse {
	return ProductSourceResponse{
		ID:                ps.ID.String(),
		ContentDocID:      ps.ContentDocID,
		SourceProductID:   ps.SourceProductID,
		SourceURL:         ps.SourceURL,
		SupplierID:        ps.SupplierID.String(),
		CategoryID:        ps.CategoryID,
		OriginalImageURLs: ps.OriginalImageURLs,
		VariantMappings:   ps.VariantMappings,
		CostPrice:         ps.CostPrice,
		RetailPrice:       ps.RetailPrice,
		Currency:          ps.Currency,
		SourceStatus:      string(ps.SourceStatus),
		InventoryStatus:   string(ps.InventoryStatus),
		LastSyncedAt:      ps.LastSyncedAt,
		CreatedAt:         ps.CreatedAt,
	}
}
