// Package pricing converts supplier cost into storefront retail prices.
//
// Everything in this package is pure: exact decimal arithmetic, no I/O and no shared state.
// Category-level knobs live in CategoryPricingConfig, which callers load per import and
// pass to a Calculator; the calculator never mutates it.
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Defaults applied when a category has no stored configuration or leaves a field unset
var (
	DefaultMarkupFactor      = decimal.RequireFromString("2.5")
	DefaultShippingBuffer    = decimal.RequireFromString("3.00")
	DefaultPlatformFee       = decimal.RequireFromString("0.05")
	DefaultRoundingIncrement = decimal.RequireFromString("0.99")
)

var one = decimal.NewFromInt(1)

// CategoryPricingConfig holds the pricing rules for one storefront category
type CategoryPricingConfig struct {
	// CategoryID identifies the storefront category
	CategoryID string `json:"category_id"`
	// CategoryName is informational
	CategoryName string `json:"category_name,omitempty"`
	// MarkupFactor multiplies the cost price, must be >= 1.0
	MarkupFactor decimal.Decimal `json:"markup_factor"`
	// ShippingBuffer is added after markup
	ShippingBuffer decimal.Decimal `json:"shipping_buffer"`
	// PlatformFee is a fraction in [0, 1) applied on top of marked-up price plus shipping
	PlatformFee decimal.Decimal `json:"platform_fee"`
	// RoundingIncrement is the fractional ending every price is rounded to, e.g. 0.99.
	// Zero disables charm rounding and prices are only rounded to cents.
	RoundingIncrement decimal.Decimal `json:"rounding_increment"`
	// MinPrice clamps the retail price from below when set
	MinPrice decimal.NullDecimal `json:"min_price"`
	// MaxPrice clamps the retail price from above when set
	MaxPrice decimal.NullDecimal `json:"max_price"`
}

// DefaultConfig returns the fallback configuration for a category
func DefaultConfig(categoryID string) CategoryPricingConfig {
	return CategoryPricingConfig{
		CategoryID:        categoryID,
		MarkupFactor:      DefaultMarkupFactor,
		ShippingBuffer:    DefaultShippingBuffer,
		PlatformFee:       DefaultPlatformFee,
		RoundingIncrement: DefaultRoundingIncrement,
	}
}

// Validate checks the configuration at the boundary so loss-making prices are never computed
func (c CategoryPricingConfig) Validate() error {
	if c.MarkupFactor.LessThan(one) {
		return fmt.Errorf("%w: markup factor %s is below 1.0", ErrInvalidConfiguration, c.MarkupFactor)
	}
	if c.ShippingBuffer.IsNegative() {
		return fmt.Errorf("%w: shipping buffer %s is negative", ErrInvalidConfiguration, c.ShippingBuffer)
	}
	if c.PlatformFee.IsNegative() || c.PlatformFee.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: platform fee %s must be in [0, 1)", ErrInvalidConfiguration, c.PlatformFee)
	}
	if c.RoundingIncrement.IsNegative() || c.RoundingIncrement.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: rounding increment %s must be in [0, 1)", ErrInvalidConfiguration, c.RoundingIncrement)
	}
	if c.MinPrice.Valid && c.MinPrice.Decimal.IsNegative() {
		return fmt.Errorf("%w: min price %s is negative", ErrInvalidConfiguration, c.MinPrice.Decimal)
	}
	if c.MinPrice.Valid && c.MaxPrice.Valid && c.MinPrice.Decimal.GreaterThan(c.MaxPrice.Decimal) {
		return fmt.Errorf("%w: min price %s exceeds max price %s",
			ErrInvalidConfiguration, c.MinPrice.Decimal, c.MaxPrice.Decimal)
	}
	return nil
}

// ConfigRepository loads and stores per-category pricing configuration
type ConfigRepository interface {
	// FindByCategory returns shared.ErrNotFound when the category has no stored configuration
	FindByCategory(ctx context.Context, categoryID string) (*CategoryPricingConfig, error)
	// Save creates or replaces the configuration of a category
	Save(ctx context.Context, cfg *CategoryPricingConfig) error
}
