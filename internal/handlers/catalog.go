package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/store"
)

// allCategories is what the mini-app sends for its unfiltered tab.
const allCategories = "all"

// CatalogHandler serves the public product catalog.
type CatalogHandler struct {
	catalog store.Catalog
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog store.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListProducts returns products, optionally narrowed by category and a name search.
// The mini-app consumes the bare array.
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	category := c.Query("category")
	if category == allCategories {
		category = ""
	}

	products, err := h.catalog.ListProducts(c.UserContext(), store.ProductFilter{
		Category: category,
		Search:   c.Query("search"),
	})
	if err != nil {
		return apperr.Upstream("Failed to load products", err)
	}
	return c.JSON(products)
}

// ListCategories returns the distinct product categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return apperr.Upstream("Failed to load categories", err)
	}
	return c.JSON(categories)
}
