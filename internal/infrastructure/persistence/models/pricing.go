package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/pricing"
)

// CategoryPricingModel is the persistence model for CategoryPricingConfig.
// It is keyed by category id; one row per category.
type CategoryPricingModel struct {
	CategoryID        string              `gorm:"type:varchar(64);primary_key"`
	CategoryName      string              `gorm:"type:varchar(255)"`
	MarkupFactor      decimal.Decimal     `gorm:"type:decimal(8,4);not null"`
	ShippingBuffer    decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	PlatformFee       decimal.Decimal     `gorm:"type:decimal(6,4);not null;default:0"`
	RoundingIncrement decimal.Decimal     `gorm:"type:decimal(4,2);not null;default:0"`
	MinPrice          decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	MaxPrice          decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	CreatedAt         time.Time           `gorm:"not null"`
	UpdatedAt         time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CategoryPricingModel) TableName() string {
	return "category_pricing"
}

// ToDomain converts the persistence model to a domain CategoryPricingConfig
func (m *CategoryPricingModel) ToDomain() *pricing.CategoryPricingConfig {
	return &pricing.CategoryPricingConfig{
		CategoryID:        m.CategoryID,
		CategoryName:      m.CategoryName,
		MarkupFactor:      m.MarkupFactor,
		ShippingBuffer:    m.ShippingBuffer,
		PlatformFee:       m.PlatformFee,
		RoundingIncrement: m.RoundingIncrement,
		MinPrice:          m.MinPrice,
		MaxPrice:          m.MaxPrice,
	}
}

// CategoryPricingModelFromDomain creates a persistence model from a domain CategoryPricingConfig
func CategoryPricingModelFromDomain(c *pricing.CategoryPricingConfig) *CategoryPricingModel {
	return &CategoryPricingModel{
		CategoryID:        c.CategoryID,
		CategoryName:      c.CategoryName,
		MarkupFactor:      c.MarkupFactor,
		ShippingBuffer:    c.ShippingBuffer,
		PlatformFee:       c.PlatformFee,
		RoundingIncrement: c.RoundingIncrement,
		MinPrice:          c.MinPrice,
		MaxPrice:          c.MaxPrice,
	}
}
