package importer

import (
	"time"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/listing"
	"github.com/storefront/backend/internal/domain/pricing"
)

// State is the terminal state of an import
type State string

const (
	StateSucceeded             State = "succeeded"
	StateSucceededWithWarnings State = "succeeded_with_warnings"
	StateFailed                State = "failed"
)

// Request asks for one marketplace listing to be imported
type Request struct {
	URL        string             `json:"url" binding:"required,listing_url"`
	CategoryID string             `json:"category_id" binding:"required,category_id"`
	Overrides  *catalog.Overrides `json:"overrides,omitempty"`
}

// Result is the outcome of a committed import
type Result struct {
	Success        bool           `json:"success"`
	State          State          `json:"state"`
	ImportID       string         `json:"import_id"`
	ContentDocID   string         `json:"content_doc_id,omitempty"`
	Slug           string         `json:"slug,omitempty"`
	SourceRecordID string         `json:"source_record_id,omitempty"`
	Error          string         `json:"error,omitempty"`
	ErrorKind      ErrorKind      `json:"error_kind,omitempty"`
	ErrorStage     Stage          `json:"error_stage,omitempty"`
	ErrorDetails   map[string]any `json:"error_details,omitempty"`
	Warnings       []Warning      `json:"warnings"`
	Duration       time.Duration  `json:"duration"`
}

// Preview is the outcome of a dry run: nothing is persisted
type Preview struct {
	Product    *catalog.TransformedProduct `json:"product"`
	Stock      listing.StockSummary        `json:"stock"`
	Price      pricing.Breakdown           `json:"price"`
	Margin     pricing.Margin              `json:"margin"`
	Validation pricing.Validation          `json:"validation"`
	Images     []catalog.ProcessedImage    `json:"images"`
	Warnings   []Warning                   `json:"warnings"`
}

func (r *Result) fail(err *ImportError) *Result {
	r.Success = false
	r.State = StateFailed
	r.Error = err.Error()
	r.ErrorKind = err.Kind
	r.ErrorStage = err.Stage
	r.ErrorDetails = err.Details
	return r
}

func (r *Result) succeed() *Result {
	r.Success = true
	r.State = StateSucceeded
	if len(r.Warnings) > 0 {
		r.State = StateSucceededWithWarnings
	}
	return r
}
