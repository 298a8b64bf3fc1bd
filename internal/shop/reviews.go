package shop

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/catalog"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/query"
	"storefront/internal/review"

	"github.com/gin-gonic/gin"
)

func (h *Handler) fetchReviews(ctx context.Context, productID string) query.Result[[]review.Review] {
	return query.Fetch(ctx, h.cache, reviewsKey(productID), func(ctx context.Context) ([]review.Review, error) {
		return h.reviews.ListForProduct(ctx, productID)
	})
}

func (h *Handler) listReviews(c *gin.Context) {
	res := h.fetchReviews(c.Request.Context(), c.Param("id"))
	if res.Status != query.StatusSuccess {
		logger.Error("list reviews failed", map[string]any{
			"product_id": c.Param("id"),
			"error":      res.Error,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reviews"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": res.Data})
}

func (h *Handler) myReview(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c.Request.Context())

	r, err := h.reviews.ForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		logger.Error("load own review failed", map[string]any{
			"product_id": c.Param("id"),
			"error":      err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load review"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": r})
}

type writeReviewRequest struct {
	Rating  int    `json:"rating"`
	Message string `json:"message"`
}

func (h *Handler) writeReview(c *gin.Context) {
	var req writeReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	productID := c.Param("id")
	userID, _ := middleware.UserIDFromContext(ctx)

	if _, err := h.products.Get(ctx, productID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		logger.Error("review product lookup failed", map[string]any{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save review"})
		return
	}

	r, err := h.reviews.Write(ctx, productID, userID, req.Rating, req.Message)
	if err != nil {
		if errors.Is(err, review.ErrInvalidRating) || errors.Is(err, review.ErrMessageTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("save review failed", map[string]any{
			"product_id": productID,
			"user_id":    userID,
			"error":      err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save review"})
		return
	}

	if err := h.cache.Invalidate(ctx, reviewsKey(productID)); err != nil {
		logger.Warn("review cache invalidation failed", map[string]any{
			"product_id": productID,
			"error":      err.Error(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"review": r})
}
