package sheet

import (
	"errors"
	"fmt"
)

// Row error codes
const (
	ErrCodeRequiredField = "ERR_SHEET_REQUIRED_FIELD"
	ErrCodeInvalidURL    = "ERR_SHEET_INVALID_URL"
	ErrCodeInvalidLength = "ERR_SHEET_INVALID_LENGTH"
	ErrCodeDuplicateRow  = "ERR_SHEET_DUPLICATE_ROW"
	ErrCodeMalformedRow  = "ERR_SHEET_MALFORMED_ROW"
)

// Common sheet errors
var (
	// ErrEmptyFile is returned when the file has no content
	ErrEmptyFile = errors.New("sheet: file is empty")

	// ErrInvalidEncoding is returned for CSV files that are not UTF-8
	ErrInvalidEncoding = errors.New("sheet: invalid file encoding")

	// ErrMissingHeader is returned when the url column cannot be located
	ErrMissingHeader = errors.New("sheet: missing url column")

	// ErrNoDataRows is returned when the file contains no listing rows
	ErrNoDataRows = errors.New("sheet: no data rows")

	// ErrTooManyRows is returned when the file exceeds the row limit
	ErrTooManyRows = errors.New("sheet: too many rows")

	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
	ErrUnsupportedFormat = errors.New("sheet: unsupported file format")
)

// RowError represents an error in a specific row
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection collects row errors up to a limit while counting all of them
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequiredError adds a required field error
func (ec *ErrorCollection) AddRequiredError(row int, column string) {
	ec.Add(RowError{Row: row, Column: column, Code: ErrCodeRequiredField,
		Message: fmt.Sprintf("field '%s' is required", column)})
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}
