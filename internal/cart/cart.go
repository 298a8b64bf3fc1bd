package cart

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/catalog"
	"storefront/internal/logger"
)

var (
	ErrUnknownProduct = errors.New("unknown product")
	ErrNotInCart      = errors.New("product not in cart")
)

type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Store persists cart contents keyed by cart id.
// Get returns nil, nil when the product is not in the cart.
type Store interface {
	Items(ctx context.Context, cartID string) ([]Item, error)
	Get(ctx context.Context, cartID, productID string) (*Item, error)
	// Add inserts the product with quantity 1 unless it is already present.
	Add(ctx context.Context, cartID, productID string) (Item, error)
	// SetQuantity updates an existing line; it reports ErrNotInCart otherwise.
	SetQuantity(ctx context.Context, cartID, productID string, quantity int) (Item, error)
	Remove(ctx context.Context, cartID, productID string) error
}

// Line is a cart item joined with its product.
type Line struct {
	Item
	Product   catalog.Product `json:"product"`
	LineTotal string          `json:"line_total_usd"`
}

type View struct {
	CartID   string `json:"cart_id"`
	Lines    []Line `json:"lines"`
	Count    int    `json:"count"`
	TotalUSD string `json:"total_usd"`
}

type Service struct {
	store    Store
	products catalog.Store
}

func NewService(store Store, products catalog.Store) *Service {
	return &Service{store: store, products: products}
}

func (s *Service) product(ctx context.Context, productID string) (*catalog.Product, error) {
	p, err := s.products.Get(ctx, productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrUnknownProduct
	}
	return p, err
}

func (s *Service) AddToCart(ctx context.Context, cartID, productID string) (Item, error) {
	if _, err := s.product(ctx, productID); err != nil {
		return Item{}, err
	}
	return s.store.Add(ctx, cartID, productID)
}

func (s *Service) RemoveFromCart(ctx context.Context, cartID, productID string) error {
	return s.store.Remove(ctx, cartID, productID)
}

func (s *Service) GetItem(ctx context.Context, cartID, productID string) (*Item, error) {
	if cartID == "" {
		return nil, nil
	}
	return s.store.Get(ctx, cartID, productID)
}

// SetQuantity clamps quantity to [1, 100] before storing it.
func (s *Service) SetQuantity(ctx context.Context, cartID, productID string, quantity int) (Item, error) {
	return s.store.SetQuantity(ctx, cartID, productID, ClampQuantity(quantity))
}

// View returns the cart with product details and totals. Lines whose
// product is no longer sold are dropped from the view and the store.
func (s *Service) View(ctx context.Context, cartID string) (View, error) {
	view := View{CartID: cartID, Lines: []Line{}, TotalUSD: catalog.FormatCents(0)}
	if cartID == "" {
		return view, nil
	}

	items, err := s.store.Items(ctx, cartID)
	if err != nil {
		return View{}, err
	}

	var total int64
	for _, it := range items {
		p, err := s.product(ctx, it.ProductID)
		if errors.Is(err, ErrUnknownProduct) {
			if err := s.store.Remove(ctx, cartID, it.ProductID); err != nil {
				logger.Warn("cart: drop retired product failed", map[string]any{
					"cart_id":    cartID,
					"product_id": it.ProductID,
					"error":      err.Error(),
				})
			}
			continue
		}
		if err != nil {
			return View{}, err
		}

		cents, err := p.PriceCents()
		if err != nil {
			return View{}, fmt.Errorf("cart: product %s: %w", p.ID, err)
		}

		lineCents := cents * int64(it.Quantity)
		view.Lines = append(view.Lines, Line{
			Item:      it,
			Product:   *p,
			LineTotal: catalog.FormatCents(lineCents),
		})
		view.Count += it.Quantity
		total += lineCents
	}

	view.TotalUSD = catalog.FormatCents(total)
	return view, nil
}
