package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystemEngine(h *SystemHandler) *gin.Engine {
	engine := gin.New()
	router.NewRouter(engine).RegisterRoot(SystemRoutes(h)).Setup()
	return engine
}

func decodeHealth(t *testing.T, resp dto.Response) HealthResponse {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(raw, &health))
	return health
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		h := NewSystemHandler("1.2.0", map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"mongodb":  func(context.Context) error { return nil },
		})

		w := httptest.NewRecorder()
		newSystemEngine(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		health := decodeHealth(t, resp)
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, "1.2.0", health.Version)
		assert.NotEmpty(t, health.GoVersion)
		assert.Equal(t, map[string]string{"postgres": "ok", "mongodb": "ok"}, health.Checks)
	})

	t.Run("failing check degrades the service", func(t *testing.T) {
		h := NewSystemHandler("1.2.0", map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})

		w := httptest.NewRecorder()
		newSystemEngine(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeUnavailable, resp.Error.Code)
		health := decodeHealth(t, resp)
		assert.Equal(t, "degraded", health.Status)
		assert.Equal(t, "connection refused", health.Checks["redis"])
		assert.Equal(t, "ok", health.Checks["postgres"])
	})

	t.Run("checks share the request deadline", func(t *testing.T) {
		h := NewSystemHandler("dev", map[string]HealthCheck{
			"slow": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		})
		h.timeout = 0

		w := httptest.NewRecorder()
		newSystemEngine(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, context.DeadlineExceeded.Error(), decodeHealth(t, decodeResponse(t, w)).Checks["slow"])
	})

	t.Run("no checks", func(t *testing.T) {
		w := httptest.NewRecorder()
		newSystemEngine(NewSystemHandler("dev", nil)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
