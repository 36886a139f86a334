// Package sheet reads bulk import rows from CSV and XLSX files.
//
// The file needs a url column and may carry a category column; header names are
// matched case-insensitively against a few common spellings. A file whose first row
// already holds a URL is read positionally as url, category.
package sheet

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/storefront/backend/internal/application/importer"
)

const (
	// DefaultMaxRows caps the number of listing rows read from one file
	DefaultMaxRows = 500
	maxCategoryLen = 64
)

var (
	urlHeaders      = []string{"url", "link", "product_url", "source_url", "listing_url"}
	categoryHeaders = []string{"category", "category_id", "categoryid", "collection"}
)

// Result holds the valid rows of a file and the problems found in the others
type Result struct {
	Rows        []importer.BulkRow `json:"rows"`
	Errors      []RowError         `json:"errors"`
	TotalErrors int                `json:"total_errors"`
}

// Reader parses bulk import files
type Reader struct {
	maxRows         int
	defaultCategory string
}

// Option configures a Reader
type Option func(*Reader)

// WithMaxRows sets the row limit
func WithMaxRows(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxRows = n
		}
	}
}

// WithDefaultCategory is used for rows without a category
func WithDefaultCategory(categoryID string) Option {
	return func(r *Reader) {
		r.defaultCategory = strings.TrimSpace(categoryID)
	}
}

// NewReader creates a Reader
func NewReader(opts ...Option) *Reader {
	r := &Reader{maxRows: DefaultMaxRows}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read parses the file. The format is chosen by extension, falling back to content sniffing.
func (r *Reader) Read(filename string, src io.Reader) (*Result, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	var records [][]string
	switch {
	case isXLSX(filename, data):
		records, err = readXLSX(bytes.NewReader(data))
	case isCSV(filename):
		records, err = readCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}
	return r.parse(records)
}

func (r *Reader) parse(records [][]string) (*Result, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	urlCol, catCol, first := locateColumns(records[0])
	if urlCol < 0 {
		return nil, ErrMissingHeader
	}

	errs := NewErrorCollection(100)
	res := &Result{Rows: []importer.BulkRow{}}
	seen := make(map[string]int)

	for i := first; i < len(records); i++ {
		line := i + 1
		rec := records[i]
		rawURL := cell(rec, urlCol)
		category := cell(rec, catCol)
		if rawURL == "" && category == "" {
			continue
		}
		if len(res.Rows) >= r.maxRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrTooManyRows, r.maxRows)
		}

		if category == "" {
			category = r.defaultCategory
		}
		switch {
		case rawURL == "":
			errs.AddRequiredError(line, "url")
			continue
		case !validURL(rawURL):
			errs.Add(RowError{Row: line, Column: "url", Code: ErrCodeInvalidURL, Message: "not an http(s) URL", Value: rawURL})
			continue
		case category == "":
			errs.AddRequiredError(line, "category")
			continue
		case len(category) > maxCategoryLen:
			errs.Add(RowError{Row: line, Column: "category", Code: ErrCodeInvalidLength,
				Message: fmt.Sprintf("length must be at most %d", maxCategoryLen), Value: category})
			continue
		}
		if prev, dup := seen[rawURL]; dup {
			errs.Add(RowError{Row: line, Column: "url", Code: ErrCodeDuplicateRow,
				Message: fmt.Sprintf("duplicate of row %d", prev), Value: rawURL})
			continue
		}
		seen[rawURL] = line
		res.Rows = append(res.Rows, importer.BulkRow{Line: line, URL: rawURL, CategoryID: category})
	}

	res.Errors = errs.Errors()
	res.TotalErrors = errs.TotalCount()
	if len(res.Rows) == 0 && res.TotalErrors == 0 {
		return nil, ErrNoDataRows
	}
	return res, nil
}

// locateColumns finds the url and category columns and the index of the first data row
func locateColumns(header []string) (urlCol, catCol, first int) {
	urlCol, catCol = -1, -1
	for i, h := range header {
		name := normalizeHeader(h)
		if urlCol < 0 && contains(urlHeaders, name) {
			urlCol = i
		}
		if catCol < 0 && contains(categoryHeaders, name) {
			catCol = i
		}
	}
	if urlCol >= 0 {
		return urlCol, catCol, 1
	}
	// Headerless file
	if validURL(cell(header, 0)) {
		return 0, 1, 0
	}
	return -1, -1, 0
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func cell(rec []string, col int) string {
	if col < 0 || col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func isXLSX(filename string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return true
	case ".csv", ".txt", ".tsv":
		return false
	}
	// XLSX files are zip archives
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func isCSV(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", ".tsv", "":
		return true
	}
	return false
}
