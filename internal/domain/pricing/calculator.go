package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCompareAtMarkupPercent is the extra markup used for the "was" price
var DefaultCompareAtMarkupPercent = decimal.NewFromInt(20)

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
)

// Thresholds controls which prices Validate reports as suspicious
type Thresholds struct {
	VeryLowPrice  decimal.Decimal
	VeryHighPrice decimal.Decimal
	LowMarkup     decimal.Decimal
}

// DefaultThresholds returns the warning thresholds used by the import pipeline
func DefaultThresholds() Thresholds {
	return Thresholds{
		VeryLowPrice:  decimal.NewFromInt(5),
		VeryHighPrice: decimal.NewFromInt(1000),
		LowMarkup:     decimal.RequireFromString("1.5"),
	}
}

// Calculator computes retail prices, margins and compare-at prices
type Calculator struct {
	thresholds Thresholds
}

// CalculatorOption configures a Calculator
type CalculatorOption func(*Calculator)

// WithThresholds overrides the validation warning thresholds
func WithThresholds(t Thresholds) CalculatorOption {
	return func(c *Calculator) {
		c.thresholds = t
	}
}

// NewCalculator creates a new Calculator
func NewCalculator(opts ...CalculatorOption) *Calculator {
	c := &Calculator{thresholds: DefaultThresholds()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Breakdown records every intermediate step of a retail price computation
type Breakdown struct {
	Cost         decimal.Decimal `json:"cost"`
	MarkedUp     decimal.Decimal `json:"marked_up"`
	WithShipping decimal.Decimal `json:"with_shipping"`
	WithFees     decimal.Decimal `json:"with_fees"`
	Rounded      decimal.Decimal `json:"rounded"`
	Final        decimal.Decimal `json:"final"`
	Clamped      bool            `json:"clamped"`
	Overridden   bool            `json:"overridden"`
}

// WithOverride replaces the final price with an operator-set price. The computed
// steps stay visible so the override can be compared against them.
func (b Breakdown) WithOverride(price decimal.Decimal) Breakdown {
	b.Final = price
	b.Overridden = true
	return b
}

// Breakdown computes the retail price and returns each step.
// It fails with ErrInvalidConfiguration for a negative cost or an invalid configuration.
func (c *Calculator) Breakdown(cost decimal.Decimal, cfg CategoryPricingConfig) (Breakdown, error) {
	if cost.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: %w: %s", ErrInvalidConfiguration, ErrNegativeCost, cost)
	}
	if err := cfg.Validate(); err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{Cost: cost}
	b.MarkedUp = cost.Mul(cfg.MarkupFactor)
	b.WithShipping = b.MarkedUp.Add(cfg.ShippingBuffer)
	b.WithFees = b.WithShipping.Mul(one.Add(cfg.PlatformFee))
	b.Rounded = RoundToIncrement(b.WithFees, cfg.RoundingIncrement)
	b.Final = b.Rounded

	if cfg.MinPrice.Valid && b.Final.LessThan(cfg.MinPrice.Decimal) {
		b.Final = cfg.MinPrice.Decimal
		b.Clamped = true
	}
	if cfg.MaxPrice.Valid && b.Final.GreaterThan(cfg.MaxPrice.Decimal) {
		b.Final = cfg.MaxPrice.Decimal
		b.Clamped = true
	}
	return b, nil
}

// RetailPrice computes the storefront price for a cost price under the given configuration
func (c *Calculator) RetailPrice(cost decimal.Decimal, cfg CategoryPricingConfig) (decimal.Decimal, error) {
	b, err := c.Breakdown(cost, cfg)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Final, nil
}

// Margin describes the profitability of a retail price
type Margin struct {
	Margin           decimal.Decimal `json:"margin"`
	MarginPercentage decimal.Decimal `json:"margin_percentage"`
	// MarkupFactor is invalid (undefined) when the cost is zero
	MarkupFactor decimal.NullDecimal `json:"markup_factor"`
}

// MarkupDefined reports whether a markup factor could be computed
func (m Margin) MarkupDefined() bool {
	return m.MarkupFactor.Valid
}

// Margin computes margin, margin percentage and effective markup.
// A zero retail price yields a zero percentage; a zero cost leaves the markup undefined.
func (c *Calculator) Margin(cost, retail decimal.Decimal) Margin {
	m := Margin{Margin: retail.Sub(cost)}
	if retail.IsZero() {
		m.MarginPercentage = decimal.Zero
	} else {
		m.MarginPercentage = m.Margin.Div(retail).Mul(hundred).Round(2)
	}
	if !cost.IsZero() {
		m.MarkupFactor = decimal.NewNullDecimal(retail.Div(cost).Round(4))
	}
	return m
}

// CompareAtPrice computes a "was" price above retail by extraPercent, rounded like retail prices.
// The result is always strictly greater than retail.
func (c *Calculator) CompareAtPrice(retail, extraPercent, increment decimal.Decimal) (decimal.Decimal, error) {
	if !extraPercent.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: compare-at markup %s must be positive", ErrInvalidConfiguration, extraPercent)
	}
	if retail.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: retail price %s is negative", ErrInvalidConfiguration, retail)
	}
	raised := retail.Mul(one.Add(extraPercent.Div(hundred)))
	result := RoundToIncrement(raised, increment)
	if result.LessThanOrEqual(retail) {
		step := one
		if increment.IsZero() {
			step = cent
		}
		result = RoundToIncrement(retail, increment).Add(step)
	}
	return result, nil
}

// Validation is the outcome of checking a price against a category's rules
type Validation struct {
	IsValid       bool                `json:"is_valid"`
	Errors        []string            `json:"errors"`
	Warnings      []string            `json:"warnings"`
	AdjustedPrice decimal.NullDecimal `json:"adjusted_price"`
}

// Validate checks a price against the configured bounds.
// Bound violations are errors with an adjusted suggestion; suspicious values are warnings only.
func (c *Calculator) Validate(price decimal.Decimal, cfg CategoryPricingConfig) Validation {
	v := Validation{IsValid: true, Errors: []string{}, Warnings: []string{}}

	switch {
	case price.IsNegative():
		v.IsValid = false
		v.Errors = append(v.Errors, fmt.Sprintf("price %s is negative", price.StringFixed(2)))
		adjusted := decimal.Zero
		if cfg.MinPrice.Valid {
			adjusted = cfg.MinPrice.Decimal
		}
		v.AdjustedPrice = decimal.NewNullDecimal(adjusted)
	case cfg.MinPrice.Valid && price.LessThan(cfg.MinPrice.Decimal):
		v.IsValid = false
		v.Errors = append(v.Errors, fmt.Sprintf("price %s is below minimum %s",
			price.StringFixed(2), cfg.MinPrice.Decimal.StringFixed(2)))
		v.AdjustedPrice = decimal.NewNullDecimal(cfg.MinPrice.Decimal)
	case cfg.MaxPrice.Valid && price.GreaterThan(cfg.MaxPrice.Decimal):
		v.IsValid = false
		v.Errors = append(v.Errors, fmt.Sprintf("price %s is above maximum %s",
			price.StringFixed(2), cfg.MaxPrice.Decimal.StringFixed(2)))
		v.AdjustedPrice = decimal.NewNullDecimal(cfg.MaxPrice.Decimal)
	}

	if !price.IsNegative() && price.LessThan(c.thresholds.VeryLowPrice) {
		v.Warnings = append(v.Warnings, fmt.Sprintf("price %s is very low", price.StringFixed(2)))
	}
	if price.GreaterThan(c.thresholds.VeryHighPrice) {
		v.Warnings = append(v.Warnings, fmt.Sprintf("price %s is very high", price.StringFixed(2)))
	}
	if cfg.MarkupFactor.LessThan(c.thresholds.LowMarkup) {
		v.Warnings = append(v.Warnings, fmt.Sprintf("markup factor %s is low", cfg.MarkupFactor))
	}
	return v
}

// RoundToIncrement rounds down to the closest price ending in increment, e.g. 29.40 -> 28.99 for 0.99.
// A zero increment rounds to whole cents. Amounts below the first ending resolve to the increment itself.
func RoundToIncrement(amount, increment decimal.Decimal) decimal.Decimal {
	if increment.IsZero() {
		return amount.Round(2)
	}
	rounded := amount.Sub(increment).Floor().Add(increment)
	if rounded.IsNegative() {
		return increment
	}
	return rounded
}
