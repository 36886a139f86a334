package transform

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/listing"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Transform converts a listing into a catalog-ready product priced with cfg.
// It fails only for a nil listing or a pricing configuration the calculator rejects.
func (t *Transformer) Transform(l *listing.SourceListing, cfg pricing.CategoryPricingConfig) (*catalog.TransformedProduct, error) {
	if l == nil {
		return nil, ErrNilListing
	}

	cost := l.Cost.Amount()
	price, compareAt, err := t.priceVariant(cost, cfg)
	if err != nil {
		return nil, err
	}

	name := t.CleanTitle(l.Title)
	base := shortHash(6, l.ExternalID)
	variants, mappings, err := t.Variants(l, cfg, name, base)
	if err != nil {
		return nil, err
	}

	blocks := t.Describe(l.Description)
	currency := string(l.Cost.Currency())
	if currency == "" {
		currency = string(valueobject.DefaultCurrency)
	}

	return &catalog.TransformedProduct{
		Name:             name,
		Slug:             t.Slug(name, l.ExternalID),
		Description:      blocks,
		ShortDescription: t.ShortDescription(blocks),
		Price:            price,
		CompareAtPrice:   compareAt,
		CostPrice:        cost,
		Currency:         currency,
		SKU:              t.buildSKU(base, rootVariantCode),
		CategoryID:       cfg.CategoryID,
		Tags:             t.Tags(l.Specifications, l.Title),
		SEOTitle:         t.SEOTitle(name),
		SEODescription:   t.SEODescription(name, l.Description),
		Variants:         variants,
		ImageURLs:        imageURLs(l.ImageURLs),
		SourceProductID:  l.ExternalID,
		SourceURL:        l.SourceURL,
		SupplierID:       l.Seller.ID,
		SupplierName:     l.Seller.Name,
		SupplierStoreURL: l.Seller.StoreURL,
		VariantMappings:  mappings,
	}, nil
}

// Reprice recomputes compare-at prices after the base price was overridden.
// Variants that shared the old base price follow the new one.
func (t *Transformer) Reprice(p *catalog.TransformedProduct, oldPrice decimal.Decimal, cfg pricing.CategoryPricingConfig) error {
	compareAt, err := t.calc.CompareAtPrice(p.Price, pricing.DefaultCompareAtMarkupPercent, cfg.RoundingIncrement)
	if err != nil {
		return err
	}
	p.CompareAtPrice = decimal.NewNullDecimal(compareAt)
	for i := range p.Variants {
		if p.Variants[i].Price.Equal(oldPrice) {
			p.Variants[i].Price = p.Price
			p.Variants[i].CompareAtPrice = p.CompareAtPrice
		}
	}
	return nil
}

// imageURLs drops blank and repeated URLs while keeping marketplace order
func imageURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
