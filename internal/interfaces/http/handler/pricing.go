package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

const maxCategoryIDLength = 64

// PricingHandler manages per-category pricing configuration
type PricingHandler struct {
	BaseHandler
	repo pricing.ConfigRepository
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(repo pricing.ConfigRepository) *PricingHandler {
	return &PricingHandler{repo: repo}
}

// Get returns the pricing configuration of a category. A category without
// stored configuration answers with the defaults and is_default set.
// GET /api/v1/pricing/:categoryId
func (h *PricingHandler) Get(c *gin.Context) {
	categoryID, ok := h.categoryID(c)
	if !ok {
		return
	}

	cfg, err := h.repo.FindByCategory(c.Request.Context(), categoryID)
	if errors.Is(err, shared.ErrNotFound) {
		h.Success(c, dto.NewPricingConfigResponse(pricing.DefaultConfig(categoryID), true))
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewPricingConfigResponse(*cfg, false))
}

// Put creates or replaces the pricing configuration of a category.
// PUT /api/v1/pricing/:categoryId
func (h *PricingHandler) Put(c *gin.Context) {
	categoryID, ok := h.categoryID(c)
	if !ok {
		return
	}
	var req dto.PricingConfigRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cfg := req.ToConfig(categoryID)
	if err := cfg.Validate(); err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.repo.Save(c.Request.Context(), &cfg); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewPricingConfigResponse(cfg, false))
}

func (h *PricingHandler) categoryID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("categoryId"))
	if id == "" || len(id) > maxCategoryIDLength {
		h.BadRequest(c, "categoryId must be 1 to 64 characters")
		return "", false
	}
	return id, true
}
