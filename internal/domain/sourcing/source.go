package sourcing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/listing"
)

// SourceStatus tracks whether the source listing is still live on the marketplace
type SourceStatus string

const (
	SourceActive      SourceStatus = "active"
	SourceUnavailable SourceStatus = "unavailable"
)

// InventoryStatus mirrors the stock classification taken at import time
type InventoryStatus string

const (
	InventoryInStock    InventoryStatus = "in_stock"
	InventoryLowStock   InventoryStatus = "low_stock"
	InventoryPartial    InventoryStatus = "partial"
	InventoryOutOfStock InventoryStatus = "out_of_stock"
	InventoryUnknown    InventoryStatus = "unknown"
)

// InventoryStatusFrom maps a listing availability to an inventory status
func InventoryStatusFrom(a listing.Availability) InventoryStatus {
	switch a {
	case listing.AvailabilityInStock:
		return InventoryInStock
	case listing.AvailabilityLowStock:
		return InventoryLowStock
	case listing.AvailabilityPartial:
		return InventoryPartial
	case listing.AvailabilityOutOfStock:
		return InventoryOutOfStock
	default:
		return InventoryUnknown
	}
}

// ProductSource links a content document to the listing and supplier it came from.
// There is exactly one ProductSource per content document and per source product id.
type ProductSource struct {
	ID                uuid.UUID
	ContentDocID      string
	SourceProductID   string
	SourceURL         string
	SupplierID        uuid.UUID
	CategoryID        string
	OriginalImageURLs []string
	VariantMappings   []catalog.VariantMapping
	CostPrice         decimal.Decimal
	RetailPrice       decimal.Decimal
	Currency          string
	LastSyncedAt      time.Time
	SourceStatus      SourceStatus
	InventoryStatus   InventoryStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewProductSource creates the source-tracking record for a freshly imported product
func NewProductSource(contentDocID string, supplierID uuid.UUID, p *catalog.TransformedProduct, stock listing.StockSummary) *ProductSource {
	now := time.Now().UTC()
	return &ProductSource{
		ID:                uuid.New(),
		ContentDocID:      contentDocID,
		SourceProductID:   p.SourceProductID,
		SourceURL:         p.SourceURL,
		SupplierID:        supplierID,
		CategoryID:        p.CategoryID,
		OriginalImageURLs: p.ImageURLs,
		VariantMappings:   p.VariantMappings,
		CostPrice:         p.CostPrice,
		RetailPrice:       p.Price,
		Currency:          p.Currency,
		LastSyncedAt:      now,
		SourceStatus:      SourceActive,
		InventoryStatus:   InventoryStatusFrom(stock.Availability),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
