package shop

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/cart"
	"storefront/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const cartCookieName = "__cart"

// cartID returns the cart carried by the request, or "".
func cartID(c *gin.Context) string {
	cookie, err := c.Request.Cookie(cartCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

// ensureCartID returns the request's cart id, issuing one on first write.
func (h *Handler) ensureCartID(c *gin.Context) string {
	if id := cartID(c); id != "" {
		return id
	}

	id := uuid.NewString()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cartCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.opts.CartCookieTTL.Seconds()),
	})
	return id
}

func (h *Handler) getCart(c *gin.Context) {
	view, err := h.carts.View(c.Request.Context(), cartID(c))
	if err != nil {
		h.cartError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

func (h *Handler) addToCart(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	item, err := h.carts.AddToCart(c.Request.Context(), h.ensureCartID(c), req.ProductID)
	if err != nil {
		h.cartError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type quantityRequest struct {
	// Quantity is a JSON number or the raw text of a quantity input.
	Quantity json.RawMessage `json:"quantity"`
}

// quantityFromJSON reads "3", 3 or 3.7 with ParseQuantity semantics.
func quantityFromJSON(raw json.RawMessage) (int, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}

	switch q := v.(type) {
	case string:
		return cart.ParseQuantity(q), true
	case float64:
		return cart.ParseQuantity(strconv.FormatFloat(q, 'f', -1, 64)), true
	default:
		return 0, false
	}
}

func (h *Handler) setQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Quantity) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	quantity, ok := quantityFromJSON(req.Quantity)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a number or string"})
		return
	}

	id := cartID(c)
	if id == "" {
		h.cartError(c, cart.ErrNotInCart)
		return
	}

	item, err := h.carts.SetQuantity(c.Request.Context(), id, c.Param("product_id"), quantity)
	if err != nil {
		h.cartError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) removeFromCart(c *gin.Context) {
	if id := cartID(c); id != "" {
		if err := h.carts.RemoveFromCart(c.Request.Context(), id, c.Param("product_id")); err != nil {
			h.cartError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) cartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cart.ErrUnknownProduct):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, cart.ErrNotInCart):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not in cart"})
	default:
		logger.Error("cart operation failed", map[string]any{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cart unavailable"})
	}
}
