package importer

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an import failed
type ErrorKind string

const (
	KindFetch                ErrorKind = "fetch"
	KindOutOfStock           ErrorKind = "out_of_stock"
	KindInvalidConfiguration ErrorKind = "invalid_configuration"
	KindContentStoreWrite    ErrorKind = "content_store_write"
	KindRelationalWrite      ErrorKind = "relational_write"
	KindDuplicateImport      ErrorKind = "duplicate_import"
	KindCancelled            ErrorKind = "cancelled"
)

// Stage names a step of the import pipeline
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageStock      Stage = "validate_stock"
	StageTransform  Stage = "transform"
	StageImages     Stage = "process_images"
	StageContent    Stage = "write_content"
	StageRelational Stage = "write_relational"
	StagePublish    Stage = "publish"
)

// ImportError is a fatal import failure with the stage it happened in
type ImportError struct {
	Kind    ErrorKind
	Stage   Stage
	Message string
	Details map[string]any
	Err     error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import %s at %s: %s: %v", e.Kind, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("import %s at %s: %s", e.Kind, e.Stage, e.Message)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

func newImportError(kind ErrorKind, stage Stage, message string, err error) *ImportError {
	return &ImportError{Kind: kind, Stage: stage, Message: message, Err: err}
}

func (e *ImportError) withDetail(key string, value any) *ImportError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// KindOf returns the kind of an ImportError in err's chain, or "" when there is none
func KindOf(err error) ErrorKind {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// WarningCode classifies a non-fatal import finding
type WarningCode string

const (
	WarnImagePartialFailure WarningCode = "image_partial_failure"
	WarnNoImages            WarningCode = "no_images"
	WarnImageBatchTimeout   WarningCode = "image_batch_timeout"
	WarnThinMargin          WarningCode = "thin_margin"
	WarnPrice               WarningCode = "price_warning"
	WarnLowStock            WarningCode = "low_stock"
	WarnDefaultPricing      WarningCode = "default_pricing"
	WarnPublishFailed       WarningCode = "publish_failed"
	WarnExistingProduct     WarningCode = "existing_product"
)

// Warning is a non-fatal finding attached to an import result
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}
