// Package sourcing holds the relational records that track where catalog products come from:
// suppliers, source-tracking rows, and the variant and inventory rows created per import.
package sourcing

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidSupplier is returned for suppliers without an external id
	ErrInvalidSupplier = errors.New("sourcing: supplier external id is required")
	// ErrDuplicateSource is returned when a source listing was already imported
	ErrDuplicateSource = errors.New("sourcing: source listing already imported")
	// ErrDuplicateProduct is returned when a product row with the same slug exists
	ErrDuplicateProduct = errors.New("sourcing: product with slug already exists")
)

// SupplierStatus is the lifecycle state of a supplier
type SupplierStatus string

const (
	SupplierActive    SupplierStatus = "active"
	SupplierSuspended SupplierStatus = "suspended"
)

// Supplier is a marketplace store products are sourced from.
// Suppliers are keyed by ExternalID and upserted, never duplicated.
type Supplier struct {
	ID         uuid.UUID
	ExternalID string
	Name       string
	StoreURL   string
	Rating     float64
	OrderCount int
	Status     SupplierStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewSupplier creates an active supplier
func NewSupplier(externalID, name, storeURL string) (*Supplier, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, ErrInvalidSupplier
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = externalID
	}
	now := time.Now().UTC()
	return &Supplier{
		ID:         uuid.New(),
		ExternalID: externalID,
		Name:       name,
		StoreURL:   strings.TrimSpace(storeURL),
		Status:     SupplierActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// WithStats sets marketplace reputation figures
func (s *Supplier) WithStats(rating float64, orderCount int) *Supplier {
	if rating < 0 {
		rating = 0
	}
	if orderCount < 0 {
		orderCount = 0
	}
	s.Rating = rating
	s.OrderCount = orderCount
	return s
}
