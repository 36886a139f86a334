// Package transform converts raw marketplace listings into catalog-ready products.
//
// Every step is pure and has an explicit fallback, so malformed-but-typed input always
// produces a valid product. Only a nil listing or an invalid pricing configuration fails.
package transform

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/storefront/backend/internal/domain/pricing"
)

// ErrNilListing is returned when Transform is called without a listing
var ErrNilListing = errors.New("transform: listing is nil")

// DefaultPromotionalTerms are stripped from titles and never used as tags
var DefaultPromotionalTerms = []string{
	"free shipping", "fast shipping", "hot sale", "hot selling", "new arrival", "new arrivals",
	"best seller", "bestseller", "dropshipping", "drop shipping", "wholesale", "high quality",
	"top quality", "limited offer", "promotion", "discount", "clearance", "cheap", "sale", "hot",
	"brand new", "new", "original", "genuine", "factory direct",
}

// Config holds the tunables of the transformer
type Config struct {
	SKUPrefix            string
	BrandName            string
	CallToAction         string
	PlaceholderBlock     string
	MaxTitleLength       int
	SlugPrefixLength     int
	MaxBlockLength       int
	ShortDescLength      int
	MaxTags              int
	SEOTitleLength       int
	SEODescriptionLength int
	DefaultVariantStock  int
	PromotionalTerms     []string
}

// DefaultConfig returns the transformer defaults used by the storefront
func DefaultConfig() Config {
	return Config{
		SKUPrefix:            "SF",
		BrandName:            "Storefront",
		CallToAction:         "Shop now with fast, tracked delivery.",
		PlaceholderBlock:     "Product details coming soon.",
		MaxTitleLength:       80,
		SlugPrefixLength:     50,
		MaxBlockLength:       500,
		ShortDescLength:      160,
		MaxTags:              10,
		SEOTitleLength:       60,
		SEODescriptionLength: 160,
		DefaultVariantStock:  999,
		PromotionalTerms:     DefaultPromotionalTerms,
	}
}

// Option configures a Transformer
type Option func(*Transformer)

// WithConfig replaces the transformer configuration; zero fields keep their defaults
func WithConfig(cfg Config) Option {
	return func(t *Transformer) {
		def := DefaultConfig()
		if cfg.SKUPrefix == "" {
			cfg.SKUPrefix = def.SKUPrefix
		}
		if cfg.CallToAction == "" {
			cfg.CallToAction = def.CallToAction
		}
		if cfg.PlaceholderBlock == "" {
			cfg.PlaceholderBlock = def.PlaceholderBlock
		}
		if cfg.MaxTitleLength <= 0 {
			cfg.MaxTitleLength = def.MaxTitleLength
		}
		if cfg.SlugPrefixLength <= 0 {
			cfg.SlugPrefixLength = def.SlugPrefixLength
		}
		if cfg.MaxBlockLength <= 0 {
			cfg.MaxBlockLength = def.MaxBlockLength
		}
		if cfg.ShortDescLength <= 0 {
			cfg.ShortDescLength = def.ShortDescLength
		}
		if cfg.MaxTags <= 0 {
			cfg.MaxTags = def.MaxTags
		}
		if cfg.SEOTitleLength <= 0 {
			cfg.SEOTitleLength = def.SEOTitleLength
		}
		if cfg.SEODescriptionLength <= 0 {
			cfg.SEODescriptionLength = def.SEODescriptionLength
		}
		if cfg.DefaultVariantStock <= 0 {
			cfg.DefaultVariantStock = def.DefaultVariantStock
		}
		if cfg.PromotionalTerms == nil {
			cfg.PromotionalTerms = def.PromotionalTerms
		}
		t.cfg = cfg
	}
}

// Transformer shapes listings into catalog products. It is safe for concurrent use.
type Transformer struct {
	cfg        Config
	calc       *pricing.Calculator
	promo      *regexp.Regexp
	promoWords map[string]struct{}
}

// NewTransformer creates a Transformer pricing variants with calc
func NewTransformer(calc *pricing.Calculator, opts ...Option) *Transformer {
	t := &Transformer{cfg: DefaultConfig(), calc: calc}
	for _, opt := range opts {
		opt(t)
	}
	if t.calc == nil {
		t.calc = pricing.NewCalculator()
	}
	t.promo, t.promoWords = compilePromotionalTerms(t.cfg.PromotionalTerms)
	return t
}

// Config returns the active configuration
func (t *Transformer) Config() Config {
	return t.cfg
}

// compilePromotionalTerms builds a case-insensitive word-boundary matcher, longest terms first
func compilePromotionalTerms(terms []string) (*regexp.Regexp, map[string]struct{}) {
	words := make(map[string]struct{})
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		for _, w := range strings.Fields(term) {
			words[w] = struct{}{}
		}
		parts := strings.Fields(term)
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		quoted = append(quoted, strings.Join(parts, `\s+`))
	}
	if len(quoted) == 0 {
		return nil, words
	}
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`), words
}
