// Package listing models raw marketplace listings as fetched from a source marketplace.
//
// A SourceListing is immutable once fetched. Downstream stages read it but never modify it.
package listing

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

var (
	// ErrFetchFailed is returned when a listing could not be retrieved from the marketplace
	ErrFetchFailed = errors.New("listing: fetch failed")
	// ErrInvalidURL is returned for URLs the fetcher cannot handle
	ErrInvalidURL = errors.New("listing: invalid source url")
	// ErrInvalidResponse is returned when the marketplace returned an unparseable payload
	ErrInvalidResponse = errors.New("listing: invalid marketplace response")
	// ErrRateLimited is returned when the marketplace throttled the request
	ErrRateLimited = errors.New("listing: rate limited")
)

// SourceListing is a raw product record obtained from an external marketplace
type SourceListing struct {
	// ExternalID is the marketplace's product identifier
	ExternalID string `json:"external_id"`
	// Title is the raw marketplace title, typically stuffed with promotional terms
	Title string `json:"title"`
	// Description is the raw description, possibly containing markup
	Description string `json:"description"`
	// Cost is the price charged by the supplier
	Cost valueobject.Money `json:"cost"`
	// ImageURLs lists product images in marketplace order
	ImageURLs []string `json:"image_urls"`
	// Variants lists purchasable variants, may be empty
	Variants []SourceVariant `json:"variants"`
	// Specifications holds free-form attribute pairs such as material or season
	Specifications map[string]string `json:"specifications"`
	// Seller identifies the supplier
	Seller Seller `json:"seller"`
	// SourceURL is the URL the listing was fetched from
	SourceURL string `json:"source_url"`
	// FetchedAt is when the listing was retrieved
	FetchedAt time.Time `json:"fetched_at"`
}

// SourceVariant is one purchasable option of a listing
type SourceVariant struct {
	// SKUID is the marketplace's variant identifier
	SKUID string `json:"sku_id"`
	// Attributes holds option values such as {"size": "2t", "color": "Red"}
	Attributes map[string]string `json:"attributes"`
	// Price is the variant's own cost; zero means "same as product"
	Price valueobject.Money `json:"price"`
	// Stock is the available quantity reported by the marketplace
	Stock int `json:"stock"`
	// ImageURL optionally points at a variant-specific image
	ImageURL string `json:"image_url,omitempty"`
}

// Label returns a human readable label built from the variant's attribute values
func (v SourceVariant) Label() string {
	return joinAttributes(v.Attributes)
}

// Seller identifies the marketplace store supplying a listing
type Seller struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	StoreURL   string  `json:"store_url"`
	Rating     float64 `json:"rating"`
	OrderCount int     `json:"order_count"`
}

// Fetcher retrieves a listing from a marketplace URL.
// Implementations are expected to be unreliable and rate limited; callers attach deadlines.
type Fetcher interface {
	FetchListing(ctx context.Context, sourceURL string) (*SourceListing, error)
}
