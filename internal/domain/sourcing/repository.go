package sourcing

import "context"

// SupplierRepository persists suppliers
type SupplierRepository interface {
	// Upsert creates the supplier or updates the row with the same ExternalID, returning the stored row
	Upsert(ctx context.Context, s *Supplier) (*Supplier, error)
	// FindByExternalID returns shared.ErrNotFound for unknown suppliers
	FindByExternalID(ctx context.Context, externalID string) (*Supplier, error)
}

// ProductSourceRepository persists source-tracking records
type ProductSourceRepository interface {
	// Create returns ErrDuplicateSource when the source product id is already tracked
	Create(ctx context.Context, ps *ProductSource) error
	// FindBySourceProductID returns shared.ErrNotFound for unknown listings
	FindBySourceProductID(ctx context.Context, sourceProductID string) (*ProductSource, error)
}

// ProductRepository persists product, variant and inventory rows
type ProductRepository interface {
	// ExistsBySlug reports whether a product row with the slug exists
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	// CreateRows inserts the product with its variants and inventory.
	// It returns ErrDuplicateProduct when the slug is taken.
	CreateRows(ctx context.Context, rows *ProductRows) error
}
