package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculator_RetailPrice(t *testing.T) {
	calc := NewCalculator()

	t.Run("applies markup shipping fees and charm rounding", func(t *testing.T) {
		b, err := calc.Breakdown(d("10.00"), DefaultConfig("apparel"))
		require.NoError(t, err)
		assert.True(t, b.MarkedUp.Equal(d("25")), "marked up %s", b.MarkedUp)
		assert.True(t, b.WithShipping.Equal(d("28")), "with shipping %s", b.WithShipping)
		assert.True(t, b.WithFees.Equal(d("29.40")), "with fees %s", b.WithFees)
		assert.True(t, b.Final.Equal(d("28.99")), "final %s", b.Final)
		assert.False(t, b.Clamped)
	})

	t.Run("clamps to configured minimum", func(t *testing.T) {
		cfg := DefaultConfig("accessories")
		cfg.MarkupFactor = d("1.0")
		cfg.ShippingBuffer = d("0")
		cfg.PlatformFee = d("0")
		cfg.MinPrice = decimal.NewNullDecimal(d("15.00"))

		b, err := calc.Breakdown(d("8.50"), cfg)
		require.NoError(t, err)
		assert.True(t, b.Rounded.Equal(d("7.99")), "unconstrained %s", b.Rounded)
		assert.True(t, b.Final.Equal(d("15.00")), "final %s", b.Final)
		assert.True(t, b.Clamped)
	})

	t.Run("override replaces only the final price", func(t *testing.T) {
		b, err := calc.Breakdown(d("10.00"), DefaultConfig("apparel"))
		require.NoError(t, err)

		o := b.WithOverride(d("34.99"))
		assert.True(t, o.Overridden)
		assert.True(t, o.Final.Equal(d("34.99")))
		assert.True(t, o.Rounded.Equal(d("28.99")), "computed price stays visible")
		assert.False(t, b.Overridden, "receiver is not modified")
	})

	t.Run("clamps to configured maximum", func(t *testing.T) {
		cfg := DefaultConfig("toys")
		cfg.MaxPrice = decimal.NewNullDecimal(d("49.99"))

		price, err := calc.RetailPrice(d("100"), cfg)
		require.NoError(t, err)
		assert.True(t, price.Equal(d("49.99")))
	})

	t.Run("rejects markup below one", func(t *testing.T) {
		cfg := DefaultConfig("toys")
		cfg.MarkupFactor = d("0.8")

		_, err := calc.RetailPrice(d("10"), cfg)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("rejects negative cost", func(t *testing.T) {
		_, err := calc.RetailPrice(d("-1"), DefaultConfig("toys"))
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
		assert.ErrorIs(t, err, ErrNegativeCost)
	})

	t.Run("zero rounding increment rounds to cents", func(t *testing.T) {
		cfg := DefaultConfig("toys")
		cfg.RoundingIncrement = decimal.Zero

		price, err := calc.RetailPrice(d("10"), cfg)
		require.NoError(t, err)
		assert.True(t, price.Equal(d("29.40")))
	})
}

func TestCalculator_RetailPriceProperty(t *testing.T) {
	calc := NewCalculator()
	markups := []string{"1", "1.2", "2", "2.5", "3.75"}
	costs := []string{"0", "0.01", "0.99", "1", "3.33", "10", "19.95", "250.50", "999.99"}

	for _, m := range markups {
		cfg := DefaultConfig("any")
		cfg.MarkupFactor = d(m)
		for _, c := range costs {
			cost := d(c)
			price, err := calc.RetailPrice(cost, cfg)
			require.NoError(t, err)

			// rounding moves the price down by less than one unit
			assert.True(t, price.Add(decimal.NewFromInt(1)).GreaterThan(cost.Mul(cfg.MarkupFactor)),
				"cost %s markup %s price %s", c, m, price)
			fraction := price.Sub(price.Floor())
			assert.True(t, fraction.Equal(cfg.RoundingIncrement),
				"cost %s markup %s price %s", c, m, price)
		}
	}
}

func TestCalculator_Margin(t *testing.T) {
	calc := NewCalculator()

	t.Run("computes margin and percentage", func(t *testing.T) {
		m := calc.Margin(d("10"), d("25"))
		assert.True(t, m.Margin.Equal(d("15")))
		assert.True(t, m.MarginPercentage.Equal(d("60.0")))
		require.True(t, m.MarkupDefined())
		assert.True(t, m.MarkupFactor.Decimal.Equal(d("2.5")))
	})

	t.Run("zero retail yields zero percentage", func(t *testing.T) {
		m := calc.Margin(d("10"), decimal.Zero)
		assert.True(t, m.MarginPercentage.IsZero())
		assert.True(t, m.Margin.Equal(d("-10")))
	})

	t.Run("zero cost leaves markup undefined", func(t *testing.T) {
		m := calc.Margin(decimal.Zero, d("9.99"))
		assert.False(t, m.MarkupDefined())
		assert.True(t, m.MarginPercentage.Equal(d("100")))
	})
}

func TestCalculator_CompareAtPrice(t *testing.T) {
	calc := NewCalculator()

	t.Run("adds twenty percent and rounds", func(t *testing.T) {
		price, err := calc.CompareAtPrice(d("28.99"), DefaultCompareAtMarkupPercent, DefaultRoundingIncrement)
		require.NoError(t, err)
		assert.True(t, price.Equal(d("33.99")), "got %s", price)
	})

	t.Run("always stays above retail", func(t *testing.T) {
		price, err := calc.CompareAtPrice(d("0.99"), DefaultCompareAtMarkupPercent, DefaultRoundingIncrement)
		require.NoError(t, err)
		assert.True(t, price.GreaterThan(d("0.99")))
		assert.True(t, price.Equal(d("1.99")))
	})

	t.Run("rejects non-positive markup", func(t *testing.T) {
		_, err := calc.CompareAtPrice(d("20"), decimal.Zero, DefaultRoundingIncrement)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)

		_, err = calc.CompareAtPrice(d("20"), d("-5"), DefaultRoundingIncrement)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

func TestCalculator_Validate(t *testing.T) {
	calc := NewCalculator()
	cfg := DefaultConfig("shoes")
	cfg.MinPrice = decimal.NewNullDecimal(d("15"))
	cfg.MaxPrice = decimal.NewNullDecimal(d("1200"))

	t.Run("accepts price within bounds", func(t *testing.T) {
		v := calc.Validate(d("28.99"), cfg)
		assert.True(t, v.IsValid)
		assert.Empty(t, v.Errors)
		assert.Empty(t, v.Warnings)
		assert.False(t, v.AdjustedPrice.Valid)
	})

	t.Run("below minimum is an error with adjustment", func(t *testing.T) {
		v := calc.Validate(d("9.99"), cfg)
		assert.False(t, v.IsValid)
		require.Len(t, v.Errors, 1)
		require.True(t, v.AdjustedPrice.Valid)
		assert.True(t, v.AdjustedPrice.Decimal.Equal(d("15")))
	})

	t.Run("above maximum is an error with adjustment", func(t *testing.T) {
		v := calc.Validate(d("1500"), cfg)
		assert.False(t, v.IsValid)
		assert.True(t, v.AdjustedPrice.Decimal.Equal(d("1200")))
		assert.Len(t, v.Warnings, 1, "very high price still warns")
	})

	t.Run("suspicious values are warnings only", func(t *testing.T) {
		loose := DefaultConfig("misc")
		loose.MarkupFactor = d("1.1")

		v := calc.Validate(d("2.99"), loose)
		assert.True(t, v.IsValid)
		assert.Len(t, v.Warnings, 2)
	})

	t.Run("negative price is invalid", func(t *testing.T) {
		v := calc.Validate(d("-1"), DefaultConfig("misc"))
		assert.False(t, v.IsValid)
		assert.True(t, v.AdjustedPrice.Decimal.IsZero())
	})
}

func TestRoundToIncrement(t *testing.T) {
	tests := []struct {
		amount    string
		increment string
		expected  string
	}{
		{"29.40", "0.99", "28.99"},
		{"29.99", "0.99", "29.99"},
		{"30.00", "0.99", "29.99"},
		{"29.995", "0.99", "29.99"},
		{"0.50", "0.99", "0.99"},
		{"12.96", "0.95", "12.95"},
		{"12.944", "0", "12.94"},
	}

	for _, tt := range tests {
		t.Run(tt.amount+" to "+tt.increment, func(t *testing.T) {
			got := RoundToIncrement(d(tt.amount), d(tt.increment))
			assert.True(t, got.Equal(d(tt.expected)), "got %s", got)
		})
	}
}

func TestCategoryPricingConfig_Validate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig("x").Validate())
	})

	t.Run("rejects invalid fields", func(t *testing.T) {
		mutations := map[string]func(*CategoryPricingConfig){
			"negative shipping":  func(c *CategoryPricingConfig) { c.ShippingBuffer = d("-1") },
			"fee of one":         func(c *CategoryPricingConfig) { c.PlatformFee = d("1") },
			"rounding above one": func(c *CategoryPricingConfig) { c.RoundingIncrement = d("1.5") },
			"negative min":       func(c *CategoryPricingConfig) { c.MinPrice = decimal.NewNullDecimal(d("-2")) },
			"min above max": func(c *CategoryPricingConfig) {
				c.MinPrice = decimal.NewNullDecimal(d("50"))
				c.MaxPrice = decimal.NewNullDecimal(d("10"))
			},
		}
		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				cfg := DefaultConfig("x")
				mutate(&cfg)
				assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfiguration)
			})
		}
	})
}
