package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type ctxKey struct{}

func TestProfiling(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProfilingConfig
		path string
	}{
		{name: "enabled", cfg: DefaultProfilingConfig(), path: "/api/v1/pricing/hats"},
		{name: "disabled", cfg: ProfilingConfig{Enabled: false}, path: "/api/v1/pricing/hats"},
		{name: "skipped path", cfg: DefaultProfilingConfig(), path: "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(func(c *gin.Context) {
				c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, "kept"))
				c.Next()
			})
			r.Use(Profiling(tt.cfg))
			handler := func(c *gin.Context) {
				// Values set upstream survive the labelled context
				assert.Equal(t, "kept", c.Request.Context().Value(ctxKey{}))
				c.Status(http.StatusOK)
			}
			r.GET("/api/v1/pricing/:categoryId", handler)
			r.GET("/health", handler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestOperationFromRoute(t *testing.T) {
	tests := []struct {
		route    string
		expected string
	}{
		{"/api/v1/imports", "imports"},
		{"/api/v1/imports/preview", "imports.preview"},
		{"/api/v1/imports/sources/:sourceProductId", "imports.sources"},
		{"/api/v2/pricing/:categoryId", "pricing"},
		{"/health", "health"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.expected, operationFromRoute(tt.route))
		})
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vx"))
	assert.False(t, isVersionSegment("imports"))
}
