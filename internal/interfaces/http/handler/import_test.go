package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/application/importer"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/sourcing"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImportService struct {
	result     *importer.Result
	importErr  error
	preview    *importer.Preview
	previewErr error
	source     *sourcing.ProductSource
	sourceErr  error
	requests   []importer.Request
}

func (f *fakeImportService) Import(_ context.Context, req importer.Request) (*importer.Result, error) {
	f.requests = append(f.requests, req)
	return f.result, f.importErr
}

func (f *fakeImportService) Preview(_ context.Context, req importer.Request) (*importer.Preview, error) {
	f.requests = append(f.requests, req)
	return f.preview, f.previewErr
}

func (f *fakeImportService) FindSource(_ context.Context, _ string) (*sourcing.ProductSource, error) {
	return f.source, f.sourceErr
}

type fakeBulkRunner struct {
	rows []importer.BulkRow
	err  error
}

func (f *fakeBulkRunner) Run(_ context.Context, rows []importer.BulkRow) (*importer.BulkSummary, error) {
	f.rows = rows
	if f.err != nil {
		return nil, f.err
	}
	return &importer.BulkSummary{Total: len(rows), Succeeded: len(rows)}, nil
}

func newImportEngine(h *ImportHandler) *gin.Engine {
	engine := gin.New()
	router.NewRouter(engine).Register(ImportRoutes(h)).Setup()
	return engine
}

func postJSON(engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func postSheet(t *testing.T, engine *gin.Engine, filename, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/bulk", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

const validImportBody = `{"url":"https://shop.example.com/item/1005001.html","category_id":"toddler-dresses"}`

func TestImportHandler_Import(t *testing.T) {
	t.Run("committed import", func(t *testing.T) {
		svc := &fakeImportService{result: &importer.Result{
			Success:      true,
			State:        importer.StateSucceeded,
			ImportID:     "imp-1",
			ContentDocID: "doc-1",
			Slug:         "summer-dress-a1b2c3",
		}}

		w := postJSON(newImportEngine(NewImportHandler(svc, &fakeBulkRunner{})), "/api/v1/imports", validImportBody)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, decodeResponse(t, w).Success)
		require.Len(t, svc.requests, 1)
		assert.Equal(t, "toddler-dresses", svc.requests[0].CategoryID)
	})

	tests := []struct {
		name       string
		kind       importer.ErrorKind
		err        error
		wantStatus int
		wantCode   string
	}{
		{"duplicate", importer.KindDuplicateImport, nil, http.StatusConflict, dto.ErrCodeDuplicateImport},
		{"out of stock", importer.KindOutOfStock, errors.New("no stock"), http.StatusUnprocessableEntity, dto.ErrCodeOutOfStock},
		{"fetch", importer.KindFetch, errors.New("timeout"), http.StatusBadGateway, dto.ErrCodeFetchFailed},
		{"store write", importer.KindRelationalWrite, errors.New("db down"), http.StatusServiceUnavailable, dto.ErrCodeStoreWrite},
	}
	for _, tt := range tests {
		t.Run("failed import: "+tt.name, func(t *testing.T) {
			svc := &fakeImportService{
				result: &importer.Result{
					State:      importer.StateFailed,
					ImportID:   "imp-2",
					Error:      "import failed",
					ErrorKind:  tt.kind,
					ErrorStage: importer.StageFetch,
				},
				importErr: tt.err,
			}

			w := postJSON(newImportEngine(NewImportHandler(svc, &fakeBulkRunner{})), "/api/v1/imports", validImportBody)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			data, ok := resp.Data.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "imp-2", data["import_id"])
		})
	}

	t.Run("no result", func(t *testing.T) {
		svc := &fakeImportService{importErr: context.Canceled}
		w := postJSON(newImportEngine(NewImportHandler(svc, &fakeBulkRunner{})), "/api/v1/imports", validImportBody)
		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	})

	t.Run("validation", func(t *testing.T) {
		svc := &fakeImportService{}
		w := postJSON(newImportEngine(NewImportHandler(svc, &fakeBulkRunner{})), "/api/v1/imports", `{"url":"not a url"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Empty(t, svc.requests)
	})
}

func TestImportHandler_Preview(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := &fakeImportService{preview: &importer.Preview{}}
		w := postJSON(newImportEngine(NewImportHandler(svc, &fakeBulkRunner{})), "/api/v1/imports/preview", validImportBody)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("import error maps to its kind", func(t *testing.T) {
		svc := &fakeImportService{previewErr: &importer.ImportError{
			Kind:    importer.KindOutOfStock,
			Stage:   importer.StageStock,
			Message: "every variant is out of stock",
		}}
		w := postJSON(newImportEngine(NewImportHandler(svc, &fakeBulkRunner{})), "/api/v1/imports/preview", validImportBody)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeOutOfStock, decodeResponse(t, w).Error.Code)
	})

	t.Run("other errors", func(t *testing.T) {
		svc := &fakeImportService{previewErr: errors.New("boom")}
		w := postJSON(newImportEngine(NewImportHandler(svc, &fakeBulkRunner{})), "/api/v1/imports/preview", validImportBody)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestImportHandler_Bulk(t *testing.T) {
	t.Run("csv upload", func(t *testing.T) {
		bulk := &fakeBulkRunner{}
		engine := newImportEngine(NewImportHandler(&fakeImportService{}, bulk))
		csv := "url,category\n" +
			"https://shop.example.com/item/1.html,hats\n" +
			"https://shop.example.com/item/2.html,\n" +
			"not-a-url,hats\n"

		w := postSheet(t, engine, "listings.csv", csv, map[string]string{"category_id": "misc"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []importer.BulkRow{
			{Line: 2, URL: "https://shop.example.com/item/1.html", CategoryID: "hats"},
			{Line: 3, URL: "https://shop.example.com/item/2.html", CategoryID: "misc"},
		}, bulk.rows)

		var body struct {
			Data dto.BulkImportResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "listings.csv", body.Data.Filename)
		assert.Equal(t, 1, body.Data.TotalErrors)
		require.NotNil(t, body.Data.Summary)
		assert.Equal(t, 2, body.Data.Summary.Succeeded)
	})

	t.Run("missing file", func(t *testing.T) {
		engine := newImportEngine(NewImportHandler(&fakeImportService{}, &fakeBulkRunner{}))
		w := postJSON(engine, "/api/v1/imports/bulk", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unsupported format", func(t *testing.T) {
		engine := newImportEngine(NewImportHandler(&fakeImportService{}, &fakeBulkRunner{}))
		w := postSheet(t, engine, "listings.pdf", "%PDF-1.7", nil)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("too many rows", func(t *testing.T) {
		engine := newImportEngine(NewImportHandler(&fakeImportService{}, &fakeBulkRunner{}, WithMaxBulkRows(1)))
		csv := "url\nhttps://shop.example.com/item/1.html\nhttps://shop.example.com/item/2.html\n"
		w := postSheet(t, engine, "listings.csv", csv, map[string]string{"category_id": "hats"})
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("file too large", func(t *testing.T) {
		engine := newImportEngine(NewImportHandler(&fakeImportService{}, &fakeBulkRunner{}, WithMaxUploadBytes(16)))
		w := postSheet(t, engine, "listings.csv", "url\nhttps://shop.example.com/item/1.html\n", nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("no importable rows", func(t *testing.T) {
		bulk := &fakeBulkRunner{}
		engine := newImportEngine(NewImportHandler(&fakeImportService{}, bulk))
		w := postSheet(t, engine, "listings.csv", "url,category\nnot-a-url,hats\n", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Nil(t, bulk.rows)
	})
}

func TestImportHandler_GetSource(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &fakeImportService{source: &sourcing.ProductSource{
			ID:              uuid.New(),
			ContentDocID:    "doc-1",
			SourceProductID: "1005001",
			CostPrice:       decimal.RequireFromString("8.40"),
			RetailPrice:     decimal.RequireFromString("28.99"),
			Currency:        "USD",
		}}
		engine := newImportEngine(NewImportHandler(svc, &fakeBulkRunner{}))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/imports/sources/1005001", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data dto.ProductSourceResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "doc-1", body.Data.ContentDocID)
		assert.True(t, decimal.RequireFromString("28.99").Equal(body.Data.RetailPrice))
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeImportService{sourceErr: shared.ErrNotFound}
		engine := newImportEngine(NewImportHandler(svc, &fakeBulkRunner{}))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/imports/sources/missing", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
	})
}
