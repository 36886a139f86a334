package handler

import (
	"github.com/storefront/backend/internal/interfaces/http/router"
)

// ImportRoutes creates the route group for import endpoints
func ImportRoutes(h *ImportHandler) *router.DomainGroup {
	group := router.NewDomainGroup("imports", "/imports")

	group.POST("", h.Import)
	group.POST("/preview", h.Preview)
	group.POST("/bulk", h.Bulk)
	group.GET("/sources/:sourceProductId", h.GetSource)

	return group
}

// PricingRoutes creates the route group for pricing configuration endpoints
func PricingRoutes(h *PricingHandler) *router.DomainGroup {
	group := router.NewDomainGroup("pricing", "/pricing")

	group.GET("/:categoryId", h.Get)
	group.PUT("/:categoryId", h.Put)

	return group
}

// SystemRoutes creates the unversioned route group for health checks
func SystemRoutes(h *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("system", "")

	group.GET("/health", h.Health)

	return group
}
