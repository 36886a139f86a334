package transform

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/listing"
	"github.com/storefront/backend/internal/domain/pricing"
)

// rootVariantCode is reserved for the product-level SKU
const rootVariantCode = "00"

var sizeAliases = map[string]string{
	"xxs": "XXS", "xs": "XS", "s": "S", "small": "S",
	"m": "M", "medium": "M", "l": "L", "large": "L",
	"xl": "XL", "x-large": "XL", "xxl": "XXL", "2xl": "XXL",
	"xxxl": "3XL", "3xl": "3XL", "4xl": "4XL", "5xl": "5XL",
	"nb": "NB", "newborn": "NB", "0m": "NB",
	"one size": "One Size", "onesize": "One Size", "free size": "One Size", "free": "One Size",
}

var (
	monthRangeSize = regexp.MustCompile(`(?i)^(\d{1,2})\s*-\s*(\d{1,2})\s*(?:m|mo|mos|month|months)$`)
	monthSize      = regexp.MustCompile(`(?i)^(\d{1,2})\s*(?:m|mo|mos|month|months)$`)
	yearRangeSize  = regexp.MustCompile(`(?i)^(\d{1,2})\s*-\s*(\d{1,2})\s*(?:y|yr|yrs|year|years)$`)
	yearSize       = regexp.MustCompile(`(?i)^(\d{1,2})\s*(?:y|yr|yrs|year|years)$`)
	toddlerSize    = regexp.MustCompile(`(?i)^(\d{1,2})\s*t$`)
	hexColor       = regexp.MustCompile(`#([0-9a-fA-F]{6})\b`)
	colorNoise     = regexp.MustCompile(`[()\[\]]`)
)

// NormalizeSize maps marketplace size spellings onto the storefront's canonical sizes.
// Unknown values are returned trimmed and upper-cased when short, unchanged otherwise.
func NormalizeSize(raw string) string {
	s := collapseSpaces(raw)
	if s == "" {
		return ""
	}
	if canonical, ok := sizeAliases[strings.ToLower(s)]; ok {
		return canonical
	}
	if m := monthRangeSize.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%sM", trimZeros(m[1]), trimZeros(m[2]))
	}
	if m := monthSize.FindStringSubmatch(s); m != nil {
		return trimZeros(m[1]) + "M"
	}
	if m := yearRangeSize.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%sY", trimZeros(m[1]), trimZeros(m[2]))
	}
	if m := yearSize.FindStringSubmatch(s); m != nil {
		return trimZeros(m[1]) + "Y"
	}
	if m := toddlerSize.FindStringSubmatch(s); m != nil {
		return trimZeros(m[1]) + "T"
	}
	if len(s) <= 4 {
		return strings.ToUpper(s)
	}
	return s
}

func trimZeros(n string) string {
	if v, err := strconv.Atoi(n); err == nil {
		return strconv.Itoa(v)
	}
	return n
}

// NormalizeColor splits a marketplace color value into a display name and an optional
// "#RRGGBB" code, e.g. "navy blue (#1a2b3c)" becomes ("Navy Blue", "#1A2B3C").
func NormalizeColor(raw string) (name, code string) {
	s := raw
	if m := hexColor.FindStringSubmatch(s); m != nil {
		code = "#" + strings.ToUpper(m[1])
		s = hexColor.ReplaceAllString(s, " ")
	}
	s = collapseSpaces(colorNoise.ReplaceAllString(s, " "))
	s = strings.Trim(s, " -,/")
	if s != "" {
		name = titleCase(strings.ToLower(s))
	}
	return name, code
}

// attributeValue returns the value of the first attribute whose key matches one of keys
func attributeValue(attrs map[string]string, keys ...string) string {
	for _, want := range keys {
		for k, v := range attrs {
			if strings.EqualFold(strings.TrimSpace(k), want) {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// variantCode derives a two character code from a variant's attributes, falling back to its
// marketplace id and then its position. The code is stable across runs.
func variantCode(v listing.SourceVariant, index int) string {
	if len(v.Attributes) > 0 {
		pairs := make([]string, 0, len(v.Attributes))
		for k, val := range v.Attributes {
			pairs = append(pairs, strings.ToLower(strings.TrimSpace(k))+"="+strings.ToLower(strings.TrimSpace(val)))
		}
		sort.Strings(pairs)
		return shortHash(2, pairs...)
	}
	if v.SKUID != "" {
		return shortHash(2, v.SKUID)
	}
	return shortHash(2, "index", strconv.Itoa(index))
}

// buildSKU formats PREFIX-HASH6-CODE
func (t *Transformer) buildSKU(base, code string) string {
	return t.cfg.SKUPrefix + "-" + base + "-" + code
}

// Variants normalizes and prices the listing's variants and records the SKU mappings.
// A listing without variants gets one default variant carrying the product SKU.
// Variant codes that collide within the listing are re-salted until unique.
func (t *Transformer) Variants(l *listing.SourceListing, cfg pricing.CategoryPricingConfig, productName, base string) ([]catalog.TransformedVariant, []catalog.VariantMapping, error) {
	if len(l.Variants) == 0 {
		price, compareAt, err := t.priceVariant(l.Cost.Amount(), cfg)
		if err != nil {
			return nil, nil, err
		}
		return []catalog.TransformedVariant{{
			SKU:            t.buildSKU(base, rootVariantCode),
			Name:           productName,
			Price:          price,
			CompareAtPrice: compareAt,
			Stock:          t.cfg.DefaultVariantStock,
		}}, []catalog.VariantMapping{}, nil
	}

	used := map[string]struct{}{rootVariantCode: {}}
	variants := make([]catalog.TransformedVariant, 0, len(l.Variants))
	mappings := make([]catalog.VariantMapping, 0, len(l.Variants))

	for i, sv := range l.Variants {
		code := variantCode(sv, i)
		width := 2
		for salt := 1; ; salt++ {
			if _, taken := used[code]; !taken {
				break
			}
			// Two hex digits only hold 255 variants, widen once salting stops finding room
			if salt%32 == 0 && width < 16 {
				width++
			}
			code = shortHash(width, code, sv.SKUID, strconv.Itoa(i), strconv.Itoa(salt))
		}
		used[code] = struct{}{}

		cost := l.Cost.Amount()
		if sv.Price.IsPositive() {
			cost = sv.Price.Amount()
		}
		price, compareAt, err := t.priceVariant(cost, cfg)
		if err != nil {
			return nil, nil, err
		}

		size := NormalizeSize(attributeValue(sv.Attributes, "size"))
		color, colorCode := NormalizeColor(attributeValue(sv.Attributes, "color", "colour"))
		label := sv.Label()
		name := variantName(size, color, label, productName)

		stock := sv.Stock
		if stock < 0 {
			stock = 0
		}
		sku := t.buildSKU(base, code)
		variants = append(variants, catalog.TransformedVariant{
			SKU:            sku,
			Name:           name,
			Size:           size,
			Color:          color,
			ColorCode:      colorCode,
			Price:          price,
			CompareAtPrice: compareAt,
			SourceSKUID:    sv.SKUID,
			Stock:          stock,
			ImageURL:       sv.ImageURL,
		})
		mappings = append(mappings, catalog.VariantMapping{
			LocalSKU:    sku,
			SourceSKUID: sv.SKUID,
			SourceLabel: label,
		})
	}
	return variants, mappings, nil
}

func variantName(size, color, label, fallback string) string {
	switch {
	case size != "" && color != "":
		return size + " / " + color
	case size != "":
		return size
	case color != "":
		return color
	case label != "":
		return label
	default:
		return fallback
	}
}

func (t *Transformer) priceVariant(cost decimal.Decimal, cfg pricing.CategoryPricingConfig) (decimal.Decimal, decimal.NullDecimal, error) {
	price, err := t.calc.RetailPrice(cost, cfg)
	if err != nil {
		return decimal.Zero, decimal.NullDecimal{}, err
	}
	compareAt, err := t.calc.CompareAtPrice(price, pricing.DefaultCompareAtMarkupPercent, cfg.RoundingIncrement)
	if err != nil {
		return decimal.Zero, decimal.NullDecimal{}, err
	}
	return price, decimal.NewNullDecimal(compareAt), nil
}
