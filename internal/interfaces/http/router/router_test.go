package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	imports := NewDomainGroup("imports", "/imports")
	imports.POST("", func(c *gin.Context) { c.Status(http.StatusCreated) })
	imports.GET("/sources/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })

	pricing := NewDomainGroup("pricing", "/pricing")
	pricing.PUT("/:categoryId", func(c *gin.Context) { c.String(http.StatusOK, c.Param("categoryId")) })

	health := NewDomainGroup("system", "")
	health.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	NewRouter(engine).Register(imports).Register(pricing).RegisterRoot(health).Setup()

	assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/api/v1/imports").Code)

	w := serve(engine, http.MethodGet, "/api/v1/imports/sources/1005001")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1005001", w.Body.String())

	w = serve(engine, http.MethodPut, "/api/v1/pricing/toddler-dresses")
	assert.Equal(t, "toddler-dresses", w.Body.String())

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/health").Code)
}

func TestDomainGroupMiddlewareAndSubgroups(t *testing.T) {
	engine := gin.New()
	var calls []string

	group := NewDomainGroup("imports", "/imports").Use(func(c *gin.Context) {
		calls = append(calls, "group")
		c.Next()
	})
	group.Group("bulk", "/bulk").POST("", func(c *gin.Context) {
		calls = append(calls, "handler")
		c.Status(http.StatusOK)
	})

	NewRouter(engine, WithAPIVersion("v2")).Register(group).Setup()

	w := serve(engine, http.MethodPost, "/api/v2/imports/bulk")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"group", "handler"}, calls)
	assert.Equal(t, "imports", group.Name())
	assert.Equal(t, "/imports", group.Prefix())
}
