package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/sourcing"
)

// CatalogProductModel is the relational row of an imported product. The unique slug
// index guards against two imports creating the same storefront product.
type CatalogProductModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	ContentDocID    string          `gorm:"type:varchar(64);not null;index:idx_catalog_products_content_doc"`
	ProductSourceID uuid.UUID       `gorm:"type:uuid;not null;index:idx_catalog_products_source"`
	Slug            string          `gorm:"type:varchar(80);not null;uniqueIndex:idx_catalog_products_slug"`
	SKU             string          `gorm:"type:varchar(40);not null"`
	Name            string          `gorm:"type:varchar(255);not null"`
	CategoryID      string          `gorm:"type:varchar(64);not null"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CatalogProductModel) TableName() string {
	return "catalog_products"
}

// ToDomain converts the persistence model to a domain Product
func (m *CatalogProductModel) ToDomain() *sourcing.Product {
	return &sourcing.Product{
		ID:              m.ID,
		ContentDocID:    m.ContentDocID,
		ProductSourceID: m.ProductSourceID,
		Slug:            m.Slug,
		SKU:             m.SKU,
		Name:            m.Name,
		CategoryID:      m.CategoryID,
		Price:           m.Price,
		CreatedAt:       m.CreatedAt,
	}
}

// CatalogProductModelFromDomain creates a persistence model from a domain Product
func CatalogProductModelFromDomain(p *sourcing.Product) *CatalogProductModel {
	return &CatalogProductModel{
		ID:              p.ID,
		ContentDocID:    p.ContentDocID,
		ProductSourceID: p.ProductSourceID,
		Slug:            p.Slug,
		SKU:             p.SKU,
		Name:            p.Name,
		CategoryID:      p.CategoryID,
		Price:           p.Price,
		CreatedAt:       p.CreatedAt,
	}
}

// ProductVariantModel is the persistence model for a sellable variant
type ProductVariantModel struct {
	ID             uuid.UUID           `gorm:"type:uuid;primary_key"`
	ProductID      uuid.UUID           `gorm:"type:uuid;not null;index:idx_product_variants_product"`
	SKU            string              `gorm:"type:varchar(40);not null;uniqueIndex:idx_product_variants_sku"`
	Name           string              `gorm:"type:varchar(255);not null"`
	Size           string              `gorm:"type:varchar(20)"`
	Color          string              `gorm:"type:varchar(50)"`
	ColorCode      string              `gorm:"type:varchar(7)"`
	Price          decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	CompareAtPrice decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	SourceSKUID    string              `gorm:"column:source_sku_id;type:varchar(100)"`
}

// TableName returns the table name for GORM
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain Variant
func (m *ProductVariantModel) ToDomain() sourcing.Variant {
	return sourcing.Variant{
		ID:             m.ID,
		ProductID:      m.ProductID,
		SKU:            m.SKU,
		Name:           m.Name,
		Size:           m.Size,
		Color:          m.Color,
		ColorCode:      m.ColorCode,
		Price:          m.Price,
		CompareAtPrice: m.CompareAtPrice,
		SourceSKUID:    m.SourceSKUID,
	}
}

// ProductVariantModelFromDomain creates a persistence model from a domain Variant
func ProductVariantModelFromDomain(v sourcing.Variant) ProductVariantModel {
	return ProductVariantModel{
		ID:             v.ID,
		ProductID:      v.ProductID,
		SKU:            v.SKU,
		Name:           v.Name,
		Size:           v.Size,
		Color:          v.Color,
		ColorCode:      v.ColorCode,
		Price:          v.Price,
		CompareAtPrice: v.CompareAtPrice,
		SourceSKUID:    v.SourceSKUID,
	}
}

// InventoryItemModel is the persistence model for a variant's on-hand quantity
type InventoryItemModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	VariantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_items_variant"`
	SKU       string    `gorm:"type:varchar(40);not null"`
	Quantity  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// ToDomain converts the persistence model to a domain InventoryItem
func (m *InventoryItemModel) ToDomain() sourcing.InventoryItem {
	return sourcing.InventoryItem{
		ID:        m.ID,
		VariantID: m.VariantID,
		SKU:       m.SKU,
		Quantity:  m.Quantity,
	}
}

// InventoryItemModelFromDomain creates a persistence model from a domain InventoryItem
func InventoryItemModelFromDomain(i sourcing.InventoryItem) InventoryItemModel {
	return InventoryItemModel{
		ID:        i.ID,
		VariantID: i.VariantID,
		SKU:       i.SKU,
		Quantity:  i.Quantity,
	}
}
