package shop

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/catalog"
	"storefront/internal/logger"
	"storefront/internal/query"

	"github.com/gin-gonic/gin"
)

func (h *Handler) fetchProduct(ctx context.Context, id string) query.Result[catalog.Product] {
	return query.Fetch(ctx, h.cache, productKey(id), func(ctx context.Context) (catalog.Product, error) {
		p, err := h.products.Get(ctx, id)
		if err != nil {
			return catalog.Product{}, err
		}
		return *p, nil
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	res := query.Fetch(c.Request.Context(), h.cache, productsKey, h.products.List)
	if res.Status != query.StatusSuccess {
		logger.Error("list products failed", map[string]any{"error": res.Error})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load products"})
		return
	}

	products := res.Data
	if products == nil {
		products = []catalog.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	res := h.fetchProduct(c.Request.Context(), c.Param("id"))

	switch {
	case res.Status == query.StatusSuccess:
		c.JSON(http.StatusOK, res.Data)
	case errors.Is(res.Err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	default:
		logger.Error("get product failed", map[string]any{
			"product_id": c.Param("id"),
			"error":      res.Error,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
	}
}
