// Package catalog holds catalog-ready product data produced by the import pipeline
// and the ports used to persist its customer-facing content.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PlaceholderName is used when a listing title cleans down to nothing
const PlaceholderName = "Untitled Product"

// BlockType classifies a description block for renderers
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockList      BlockType = "list"
)

// DescriptionBlock is one structured chunk of a product description
type DescriptionBlock struct {
	Type  BlockType `json:"type"`
	Text  string    `json:"text"`
	Items []string  `json:"items,omitempty"`
}

// TransformedProduct is a listing converted into catalog-ready data
type TransformedProduct struct {
	Name             string               `json:"name"`
	Slug             string               `json:"slug"`
	Description      []DescriptionBlock   `json:"description"`
	ShortDescription string               `json:"short_description"`
	Price            decimal.Decimal      `json:"price"`
	CompareAtPrice   decimal.NullDecimal  `json:"compare_at_price"`
	CostPrice        decimal.Decimal      `json:"cost_price"`
	Currency         string               `json:"currency"`
	SKU              string               `json:"sku"`
	CategoryID       string               `json:"category_id"`
	Tags             []string             `json:"tags"`
	SEOTitle         string               `json:"seo_title"`
	SEODescription   string               `json:"seo_description"`
	Variants         []TransformedVariant `json:"variants"`
	ImageURLs        []string             `json:"image_urls"`
	SourceProductID  string               `json:"source_product_id"`
	SourceURL        string               `json:"source_url"`
	SupplierID       string               `json:"supplier_id"`
	SupplierName     string               `json:"supplier_name"`
	SupplierStoreURL string               `json:"supplier_store_url"`
	VariantMappings  []VariantMapping     `json:"variant_mappings"`
}

// TotalStock sums the stock of all variants
func (p *TransformedProduct) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// TransformedVariant is a normalized, priced variant
type TransformedVariant struct {
	SKU            string              `json:"sku"`
	Name           string              `json:"name"`
	Size           string              `json:"size,omitempty"`
	Color          string              `json:"color,omitempty"`
	ColorCode      string              `json:"color_code,omitempty"`
	Price          decimal.Decimal     `json:"price"`
	CompareAtPrice decimal.NullDecimal `json:"compare_at_price"`
	SourceSKUID    string              `json:"source_sku_id,omitempty"`
	Stock          int                 `json:"stock"`
	ImageURL       string              `json:"image_url,omitempty"`
}

// VariantMapping ties a local SKU to the marketplace SKU it was generated from
type VariantMapping struct {
	LocalSKU    string `json:"local_sku"`
	SourceSKUID string `json:"source_sku_id"`
	SourceLabel string `json:"source_label"`
}

// Overrides are operator-supplied field values merged into a product before persistence
type Overrides struct {
	Name             *string          `json:"name,omitempty"`
	ShortDescription *string          `json:"short_description,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	SEOTitle         *string          `json:"seo_title,omitempty"`
	SEODescription   *string          `json:"seo_description,omitempty"`
}

// IsEmpty reports whether no field is overridden
func (o *Overrides) IsEmpty() bool {
	return o == nil || (o.Name == nil && o.ShortDescription == nil && o.Tags == nil &&
		o.Price == nil && o.SEOTitle == nil && o.SEODescription == nil)
}

// Apply merges the overrides into p. Blank strings are ignored so a product never loses its name.
// It returns true when the base price was overridden and must be re-validated.
func (o *Overrides) Apply(p *TransformedProduct) bool {
	if o.IsEmpty() {
		return false
	}
	if o.Name != nil && strings.TrimSpace(*o.Name) != "" {
		p.Name = strings.TrimSpace(*o.Name)
	}
	if o.ShortDescription != nil {
		p.ShortDescription = strings.TrimSpace(*o.ShortDescription)
	}
	if o.Tags != nil {
		p.Tags = append([]string(nil), o.Tags...)
	}
	if o.SEOTitle != nil && strings.TrimSpace(*o.SEOTitle) != "" {
		p.SEOTitle = strings.TrimSpace(*o.SEOTitle)
	}
	if o.SEODescription != nil {
		p.SEODescription = strings.TrimSpace(*o.SEODescription)
	}
	if o.Price != nil {
		p.Price = *o.Price
		return true
	}
	return false
}
