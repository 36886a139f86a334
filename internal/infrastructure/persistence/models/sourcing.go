package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/sourcing"
	"gorm.io/datatypes"
)

// SupplierModel is the persistence model for the Supplier domain entity.
type SupplierModel struct {
	BaseModel
	ExternalID string                  `gorm:"type:varchar(100);not null;uniqueIndex:idx_suppliers_external_id"`
	Name       string                  `gorm:"type:varchar(255);not null"`
	StoreURL   string                  `gorm:"type:varchar(500)"`
	Rating     float64                 `gorm:"type:numeric(4,2);not null;default:0"`
	OrderCount int                     `gorm:"not null;default:0"`
	Status     sourcing.SupplierStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// ToDomain converts the persistence model to a domain Supplier entity.
func (m *SupplierModel) ToDomain() *sourcing.Supplier {
	return &sourcing.Supplier{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		Name:       m.Name,
		StoreURL:   m.StoreURL,
		Rating:     m.Rating,
		OrderCount: m.OrderCount,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Supplier entity.
func (m *SupplierModel) FromDomain(s *sourcing.Supplier) {
	m.ID = s.ID
	m.ExternalID = s.ExternalID
	m.Name = s.Name
	m.StoreURL = s.StoreURL
	m.Rating = s.Rating
	m.OrderCount = s.OrderCount
	m.Status = s.Status
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
}

// SupplierModelFromDomain creates a new persistence model from a domain Supplier entity.
func SupplierModelFromDomain(s *sourcing.Supplier) *SupplierModel {
	m := &SupplierModel{}
	m.FromDomain(s)
	return m
}

// ProductSourceModel is the persistence model for the ProductSource domain entity.
// Image URLs and variant mappings are stored as JSON columns.
type ProductSourceModel struct {
	BaseModel
	ContentDocID      string                                      `gorm:"type:varchar(64);not null;uniqueIndex:idx_product_sources_content_doc"`
	SourceProductID   string                                      `gorm:"type:varchar(100);not null;uniqueIndex:idx_product_sources_source_product"`
	SourceURL         string                                      `gorm:"type:varchar(1000);not null"`
	SupplierID        uuid.UUID                                   `gorm:"type:uuid;not null;index:idx_product_sources_supplier"`
	CategoryID        string                                      `gorm:"type:varchar(64);not null;index:idx_product_sources_category"`
	OriginalImageURLs datatypes.JSONSlice[string]                 `gorm:"column:original_image_urls"`
	VariantMappings   datatypes.JSONSlice[catalog.VariantMapping] `gorm:"column:variant_mappings"`
	CostPrice         decimal.Decimal                             `gorm:"type:decimal(12,2);not null;default:0"`
	RetailPrice       decimal.Decimal                             `gorm:"type:decimal(12,2);not null;default:0"`
	Currency          string                                      `gorm:"type:varchar(3);not null"`
	LastSyncedAt      time.Time                                   `gorm:"not null"`
	SourceStatus      sourcing.SourceStatus                       `gorm:"type:varchar(20);not null;default:'active'"`
	InventoryStatus   sourcing.InventoryStatus                    `gorm:"type:varchar(20);not null;default:'unknown'"`
}

// TableName returns the table name for GORM
func (ProductSourceModel) TableName() string {
	return "product_sources"
}

// ToDomain converts the persistence model to a domain ProductSource entity.
func (m *ProductSourceModel) ToDomain() *sourcing.ProductSource {
	ps := &sourcing.ProductSource{
		ID:                m.ID,
		ContentDocID:      m.ContentDocID,
		SourceProductID:   m.SourceProductID,
		SourceURL:         m.SourceURL,
		SupplierID:        m.SupplierID,
		CategoryID:        m.CategoryID,
		OriginalImageURLs: []string(m.OriginalImageURLs),
		VariantMappings:   []catalog.VariantMapping(m.VariantMappings),
		CostPrice:         m.CostPrice,
		RetailPrice:       m.RetailPrice,
		Currency:          m.Currency,
		LastSyncedAt:      m.LastSyncedAt,
		SourceStatus:      m.SourceStatus,
		InventoryStatus:   m.InventoryStatus,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if ps.OriginalImageURLs == nil {
		ps.OriginalImageURLs = []string{}
	}
	if ps.VariantMappings == nil {
		ps.VariantMappings = []catalog.VariantMapping{}
	}
	return ps
}

// FromDomain populates the persistence model from a domain ProductSource entity.
func (m *ProductSourceModel) FromDomain(ps *sourcing.ProductSource) {
	m.ID = ps.ID
	m.ContentDocID = ps.ContentDocID
	m.SourceProductID = ps.SourceProductID
	m.SourceURL = ps.SourceURL
	m.SupplierID = ps.SupplierID
	m.CategoryID = ps.CategoryID
	m.OriginalImageURLs = datatypes.NewJSONSlice(nonNil(ps.OriginalImageURLs))
	m.VariantMappings = datatypes.NewJSONSlice(nonNil(ps.VariantMappings))
	m.CostPrice = ps.CostPrice
	m.RetailPrice = ps.RetailPrice
	m.Currency = ps.Currency
	m.LastSyncedAt = ps.LastSyncedAt
	m.SourceStatus = ps.SourceStatus
	m.InventoryStatus = ps.InventoryStatus
	m.CreatedAt = ps.CreatedAt
	m.UpdatedAt = ps.UpdatedAt
}

// ProductSourceModelFromDomain creates a new persistence model from a domain ProductSource entity.
func ProductSourceModelFromDomain(ps *sourcing.ProductSource) *ProductSourceModel {
	m := &ProductSourceModel{}
	m.FromDomain(ps)
	return m
}

// nonNil keeps empty slices serialized as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
