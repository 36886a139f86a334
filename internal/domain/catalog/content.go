package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrContentWrite is returned when the content store rejects a write
	ErrContentWrite = errors.New("catalog: content store write failed")
	// ErrDocumentNotFound is returned for unknown content document ids
	ErrDocumentNotFound = errors.New("catalog: content document not found")
	// ErrDocumentExists is returned when a document with the same id is already stored
	ErrDocumentExists = errors.New("catalog: content document already exists")
)

// DocumentStatus is the visibility state of a content document
type DocumentStatus string

const (
	// DocumentPending documents are not shown to shoppers until relational records confirm them
	DocumentPending DocumentStatus = "pending"
	// DocumentPublished documents are visible
	DocumentPublished DocumentStatus = "published"
	// DocumentOrphaned documents lost their relational counterpart and need reconciliation
	DocumentOrphaned DocumentStatus = "orphaned"
)

// IsValid returns true for known statuses
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentPending, DocumentPublished, DocumentOrphaned:
		return true
	}
	return false
}

// ContentDocument is the customer-facing display record of an imported product
type ContentDocument struct {
	ID               string               `json:"id"`
	Status           DocumentStatus       `json:"status"`
	Name             string               `json:"name"`
	Slug             string               `json:"slug"`
	Description      []DescriptionBlock   `json:"description"`
	ShortDescription string               `json:"short_description"`
	Price            decimal.Decimal      `json:"price"`
	CompareAtPrice   decimal.NullDecimal  `json:"compare_at_price"`
	Currency         string               `json:"currency"`
	SKU              string               `json:"sku"`
	CategoryID       string               `json:"category_id"`
	Tags             []string             `json:"tags"`
	SEOTitle         string               `json:"seo_title"`
	SEODescription   string               `json:"seo_description"`
	Images           []ProcessedImage     `json:"images"`
	Variants         []TransformedVariant `json:"variants"`
	SourceProductID  string               `json:"source_product_id"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// NewContentDocument builds a pending document from a transformed product and its images
func NewContentDocument(p *TransformedProduct, images []ProcessedImage) *ContentDocument {
	now := time.Now().UTC()
	return &ContentDocument{
		Status:           DocumentPending,
		Name:             p.Name,
		Slug:             p.Slug,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		Price:            p.Price,
		CompareAtPrice:   p.CompareAtPrice,
		Currency:         p.Currency,
		SKU:              p.SKU,
		CategoryID:       p.CategoryID,
		Tags:             p.Tags,
		SEOTitle:         p.SEOTitle,
		SEODescription:   p.SEODescription,
		Images:           images,
		Variants:         p.Variants,
		SourceProductID:  p.SourceProductID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// PrimaryImage returns the image flagged primary, or nil
func (d *ContentDocument) PrimaryImage() *ProcessedImage {
	for i := range d.Images {
		if d.Images[i].Primary {
			return &d.Images[i]
		}
	}
	return nil
}

// ContentStore persists customer-facing product documents
type ContentStore interface {
	// Create stores a new document and returns its id. A taken id fails with ErrDocumentExists.
	Create(ctx context.Context, doc *ContentDocument) (string, error)
	// Get returns ErrDocumentNotFound for unknown ids
	Get(ctx context.Context, id string) (*ContentDocument, error)
	// SetStatus changes a document's visibility
	SetStatus(ctx context.Context, id string, status DocumentStatus) error
	// Delete removes a document; deleting a missing document returns ErrDocumentNotFound
	Delete(ctx context.Context, id string) error
}
