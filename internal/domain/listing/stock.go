package listing

import (
	"sort"
	"strings"
)

// Availability classifies how much of a listing can be sold
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityLowStock   Availability = "low_stock"
	AvailabilityPartial    Availability = "partially_available"
	AvailabilityOutOfStock Availability = "out_of_stock"
	// AvailabilityUnknown is used for listings that report no variants and therefore no stock
	AvailabilityUnknown Availability = "unknown"
)

// IsSellable returns true unless the listing is fully exhausted
func (a Availability) IsSellable() bool {
	return a != AvailabilityOutOfStock
}

// StockSummary is the result of classifying a listing's availability
type StockSummary struct {
	Availability      Availability `json:"availability"`
	TotalStock        int          `json:"total_stock"`
	AvailableVariants int          `json:"available_variants"`
	TotalVariants     int          `json:"total_variants"`
}

// StockValidator classifies the availability of a listing
type StockValidator interface {
	Validate(l *SourceListing) StockSummary
}

// DefaultLowStockThreshold is the total quantity under which a listing is flagged low stock
const DefaultLowStockThreshold = 10

// ThresholdStockValidator classifies listings by per-variant stock counts
type ThresholdStockValidator struct {
	lowStockThreshold int
}

// NewThresholdStockValidator creates a validator; a non-positive threshold uses the default
func NewThresholdStockValidator(lowStockThreshold int) *ThresholdStockValidator {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &ThresholdStockValidator{lowStockThreshold: lowStockThreshold}
}

// Validate implements StockValidator
func (v *ThresholdStockValidator) Validate(l *SourceListing) StockSummary {
	s := StockSummary{TotalVariants: len(l.Variants)}
	if len(l.Variants) == 0 {
		s.Availability = AvailabilityUnknown
		return s
	}

	for _, variant := range l.Variants {
		if variant.Stock > 0 {
			s.TotalStock += variant.Stock
			s.AvailableVariants++
		}
	}

	switch {
	case s.AvailableVariants == 0:
		s.Availability = AvailabilityOutOfStock
	case s.AvailableVariants < s.TotalVariants:
		s.Availability = AvailabilityPartial
	case s.TotalStock < v.lowStockThreshold:
		s.Availability = AvailabilityLowStock
	default:
		s.Availability = AvailabilityInStock
	}
	return s
}

var _ StockValidator = (*ThresholdStockValidator)(nil)

// attributeOrder puts the attributes shoppers recognise first
var attributeOrder = map[string]int{"size": 0, "color": 1, "colour": 1, "style": 2}

// joinAttributes renders attribute values in a stable order: known keys first, then alphabetical
func joinAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k, val := range attrs {
		if strings.TrimSpace(val) != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := attributeOrder[strings.ToLower(keys[i])]
		rj, jok := attributeOrder[strings.ToLower(keys[j])]
		switch {
		case iok && jok && ri != rj:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, strings.TrimSpace(attrs[k]))
	}
	return strings.Join(values, " / ")
}
