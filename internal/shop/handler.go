// Package shop serves the storefront HTTP API: products, the cart,
// reviews and the product page aggregate.
package shop

import (
	"context"
	"time"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/middleware"
	"storefront/internal/query"
	"storefront/internal/review"

	"github.com/gin-gonic/gin"
)

type Products interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
	List(ctx context.Context) ([]catalog.Product, error)
}

type Carts interface {
	AddToCart(ctx context.Context, cartID, productID string) (cart.Item, error)
	RemoveFromCart(ctx context.Context, cartID, productID string) error
	GetItem(ctx context.Context, cartID, productID string) (*cart.Item, error)
	SetQuantity(ctx context.Context, cartID, productID string, quantity int) (cart.Item, error)
	View(ctx context.Context, cartID string) (cart.View, error)
}

type Reviews interface {
	ListForProduct(ctx context.Context, productID string) ([]review.Review, error)
	ForUser(ctx context.Context, productID, userID string) (*review.Review, error)
	Write(ctx context.Context, productID, userID string, rating int, message string) (*review.Review, error)
}

type Options struct {
	// SecureCookies marks the cart cookie Secure.
	SecureCookies bool
	// CartCookieTTL defaults to 30 days, matching cart storage.
	CartCookieTTL time.Duration
}

type Handler struct {
	products Products
	carts    Carts
	reviews  Reviews
	cache    *query.Cache
	opts     Options
}

func NewHandler(
	products Products,
	carts Carts,
	reviews Reviews,
	cache *query.Cache,
	opts Options,
) *Handler {
	if opts.CartCookieTTL <= 0 {
		opts.CartCookieTTL = 30 * 24 * time.Hour
	}
	return &Handler{
		products: products,
		carts:    carts,
		reviews:  reviews,
		cache:    cache,
		opts:     opts,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter, auth *middleware.AuthMiddleware) {
	api := r.Group("/api")

	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	api.GET("/products/:id/page", middleware.GinAttach(auth), h.productPage)

	api.GET("/products/:id/reviews", h.listReviews)
	mine := api.Group("/products/:id/reviews/mine", middleware.GinRequireAuth(auth))
	mine.GET("", h.myReview)
	mine.PUT("", h.writeReview)

	api.GET("/cart", h.getCart)
	api.POST("/cart/items", h.addToCart)
	api.PUT("/cart/items/:product_id", h.setQuantity)
	api.DELETE("/cart/items/:product_id", h.removeFromCart)
}

func productKey(id string) string { return query.Key("product", id) }

func reviewsKey(productID string) string { return query.Key("reviews", productID) }

const productsKey = "products"

// CatalogKeys lists the cache entries a catalog write to productIDs
// makes stale: the product list and each product.
func CatalogKeys(productIDs ...string) []string {
	keys := make([]string, 0, len(productIDs)+1)
	keys = append(keys, productsKey)
	for _, id := range productIDs {
		keys = append(keys, productKey(id))
	}
	return keys
}
