package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/application/importer"
	"github.com/storefront/backend/internal/domain/sourcing"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/sheet"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// defaultMaxUploadBytes caps bulk import sheets (10MB)
const defaultMaxUploadBytes = 10 << 20

// ImportService runs single-listing imports and previews
type ImportService interface {
	Import(ctx context.Context, req importer.Request) (*importer.Result, error)
	Preview(ctx context.Context, req importer.Request) (*importer.Preview, error)
	FindSource(ctx context.Context, sourceProductID string) (*sourcing.ProductSource, error)
}

// BulkRunner imports many rows at once
type BulkRunner interface {
	Run(ctx context.Context, rows []importer.BulkRow) (*importer.BulkSummary, error)
}

// ImportHandler handles import-related API endpoints
type ImportHandler struct {
	BaseHandler
	service        ImportService
	bulk           BulkRunner
	maxBulkRows    int
	maxUploadBytes int64
}

// ImportHandlerOption configures an ImportHandler
type ImportHandlerOption func(*ImportHandler)

// WithMaxBulkRows caps the rows accepted from one sheet
func WithMaxBulkRows(n int) ImportHandlerOption {
	return func(h *ImportHandler) {
		if n > 0 {
			h.maxBulkRows = n
		}
	}
}

// WithMaxUploadBytes caps the size of an uploaded sheet
func WithMaxUploadBytes(n int64) ImportHandlerOption {
	return func(h *ImportHandler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(service ImportService, bulk BulkRunner, opts ...ImportHandlerOption) *ImportHandler {
	h := &ImportHandler{
		service:        service,
		bulk:           bulk,
		maxBulkRows:    sheet.DefaultMaxRows,
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Import imports one marketplace listing.
// POST /api/v1/imports
//
// A committed import answers 201 with the result. A failed import answers with
// the status of its failure kind and still carries the result, so callers see
// the stage and details of the failure.
func (h *ImportHandler) Import(c *gin.Context) {
	var req importer.Request
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Import(c.Request.Context(), req)
	if result == nil {
		h.HandleError(c, err)
		return
	}
	if !result.Success {
		if err != nil {
			_ = c.Error(err)
		}
		code := dto.ErrorCodeForKind(result.ErrorKind)
		c.JSON(dto.GetHTTPStatus(code), dto.NewFailedResultResponse(code, result.Error, getRequestID(c), result))
		return
	}
	h.Created(c, result)
}

// Preview runs an import without persisting anything.
// POST /api/v1/imports/preview
func (h *ImportHandler) Preview(c *gin.Context) {
	var req importer.Request
	if !h.BindJSON(c, &req) {
		return
	}

	preview, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		var ie *importer.ImportError
		if errors.As(err, &ie) {
			_ = c.Error(err)
			h.ErrorWithCode(c, dto.ErrorCodeForKind(ie.Kind), ie.Error())
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// Bulk imports every listing of an uploaded CSV or XLSX sheet.
// POST /api/v1/imports/bulk (multipart: file, optional category_id)
//
// Rows the sheet reader rejects are reported next to the import summary.
func (h *ImportHandler) Bulk(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "file exceeds the maximum upload size")
		return
	}

	reader := sheet.NewReader(
		sheet.WithMaxRows(h.maxBulkRows),
		sheet.WithDefaultCategory(c.PostForm("category_id")),
	)
	parsed, err := reader.Read(header.Filename, file)
	if err != nil {
		h.handleSheetError(c, err)
		return
	}

	resp := dto.BulkImportResponse{
		Filename:    header.Filename,
		RowErrors:   parsed.Errors,
		TotalErrors: parsed.TotalErrors,
	}
	if len(parsed.Rows) == 0 {
		c.JSON(http.StatusUnprocessableEntity, dto.NewFailedResultResponse(
			dto.ErrCodeInvalidInput, "the file has no importable rows", getRequestID(c), resp))
		return
	}

	log := logger.GetGinLogger(c)
	log.Info("Bulk import started",
		zap.String("filename", header.Filename),
		zap.Int("rows", len(parsed.Rows)),
		zap.Int("rejected_rows", parsed.TotalErrors))

	summary, err := h.bulk.Run(c.Request.Context(), parsed.Rows)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp.Summary = summary
	h.Success(c, resp)
}

func (h *ImportHandler) handleSheetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sheet.ErrUnsupportedFormat):
		h.ErrorWithCode(c, dto.ErrCodeUnsupportedMedia, err.Error())
	case errors.Is(err, sheet.ErrTooManyRows):
		h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, err.Error())
	case errors.Is(err, sheet.ErrEmptyFile),
		errors.Is(err, sheet.ErrInvalidEncoding),
		errors.Is(err, sheet.ErrMissingHeader),
		errors.Is(err, sheet.ErrNoDataRows):
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, err.Error())
	default:
		h.BadRequest(c, "the file could not be read")
	}
}

// GetSource returns the source-tracking record of an imported listing.
// GET /api/v1/imports/sources/:sourceProductId
func (h *ImportHandler) GetSource(c *gin.Context) {
	ps, err := h.service.FindSource(c.Request.Context(), c.Param("sourceProductId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewProductSourceResponse(ps))
}
