package shop

import (
	"errors"
	"net/http"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/query"
	"storefront/internal/review"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const pageErrorMessage = "Sorry, something went wrong loading this product."

type productPage struct {
	Product   catalog.Product               `json:"product"`
	CartItem  *cart.Item                    `json:"cart_item"`
	Reviews   query.Result[[]review.Review] `json:"reviews"`
	MyReview  *review.Review                `json:"my_review"`
	SignedIn  bool                          `json:"signed_in"`
	CanReview bool                          `json:"can_review"`
}

// productPage loads everything the product page renders in one round trip.
// Only the product itself is required; the other parts degrade.
func (h *Handler) productPage(c *gin.Context) {
	productID := c.Param("id")
	userID, signedIn := middleware.UserIDFromContext(c.Request.Context())
	currentCart := cartID(c)

	page := productPage{SignedIn: signedIn}

	g, ctx := errgroup.WithContext(c.Request.Context())

	g.Go(func() error {
		res := h.fetchProduct(ctx, productID)
		if res.Status != query.StatusSuccess {
			return res.Err
		}
		page.Product = res.Data
		return nil
	})

	g.Go(func() error {
		item, err := h.carts.GetItem(ctx, currentCart, productID)
		if err != nil {
			logPagePart("cart", productID, err)
			return nil
		}
		page.CartItem = item
		return nil
	})

	g.Go(func() error {
		page.Reviews = h.fetchReviews(ctx, productID)
		if page.Reviews.Status == query.StatusError {
			logPagePart("reviews", productID, page.Reviews.Err)
		}
		return nil
	})

	if signedIn {
		g.Go(func() error {
			mine, err := h.reviews.ForUser(ctx, productID, userID)
			if err != nil {
				logPagePart("own review", productID, err)
				return nil
			}
			page.MyReview = mine
			page.CanReview = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrNotFound) {
			status = http.StatusNotFound
		} else {
			logPagePart("product", productID, err)
		}
		c.JSON(status, gin.H{"error": pageErrorMessage})
		return
	}

	c.JSON(http.StatusOK, page)
}

func logPagePart(part, productID string, err error) {
	logger.Warn("product page part failed", map[string]any{
		"part":       part,
		"product_id": productID,
		"error":      err.Error(),
	})
}
