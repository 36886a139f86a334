package sourcing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
)

// Product is the relational row of an imported catalog product. Its slug is unique.
type Product struct {
	ID              uuid.UUID
	ContentDocID    string
	ProductSourceID uuid.UUID
	Slug            string
	SKU             string
	Name            string
	CategoryID      string
	Price           decimal.Decimal
	CreatedAt       time.Time
}

// Variant is a sellable variant row
type Variant struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	SKU            string
	Name           string
	Size           string
	Color          string
	ColorCode      string
	Price          decimal.Decimal
	CompareAtPrice decimal.NullDecimal
	SourceSKUID    string
}

// InventoryItem holds the on-hand quantity of a variant
type InventoryItem struct {
	ID        uuid.UUID
	VariantID uuid.UUID
	SKU       string
	Quantity  int
}

// ProductRows is the set of relational rows created for one import
type ProductRows struct {
	Product   *Product
	Variants  []Variant
	Inventory []InventoryItem
}

// BuildProductRows derives product, variant and inventory rows from a transformed product
func BuildProductRows(contentDocID string, sourceID uuid.UUID, p *catalog.TransformedProduct) *ProductRows {
	product := &Product{
		ID:              uuid.New(),
		ContentDocID:    contentDocID,
		ProductSourceID: sourceID,
		Slug:            p.Slug,
		SKU:             p.SKU,
		Name:            p.Name,
		CategoryID:      p.CategoryID,
		Price:           p.Price,
		CreatedAt:       time.Now().UTC(),
	}

	rows := &ProductRows{
		Product:   product,
		Variants:  make([]Variant, 0, len(p.Variants)),
		Inventory: make([]InventoryItem, 0, len(p.Variants)),
	}
	for _, tv := range p.Variants {
		v := Variant{
			ID:             uuid.New(),
			ProductID:      product.ID,
			SKU:            tv.SKU,
			Name:           tv.Name,
			Size:           tv.Size,
			Color:          tv.Color,
			ColorCode:      tv.ColorCode,
			Price:          tv.Price,
			CompareAtPrice: tv.CompareAtPrice,
			SourceSKUID:    tv.SourceSKUID,
		}
		rows.Variants = append(rows.Variants, v)
		rows.Inventory = append(rows.Inventory, InventoryItem{
			ID:        uuid.New(),
			VariantID: v.ID,
			SKU:       v.SKU,
			Quantity:  tv.Stock,
		})
	}
	return rows
}
