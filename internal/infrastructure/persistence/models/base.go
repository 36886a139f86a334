package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// AllModels lists every model, in dependency order, for AutoMigrate in tests and tooling.
func AllModels() []any {
	return []any{
		&SupplierModel{},
		&ProductSourceModel{},
		&CatalogProductModel{},
		&ProductVariantModel{},
		&InventoryItemModel{},
		&CategoryPricingModel{},
	}
}
