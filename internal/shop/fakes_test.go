package shop

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/authstate"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/review"
)

type catalogFake struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	gets     int
	err      error
}

func (f *catalogFake) Get(_ context.Context, id string) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok || !p.Active {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (f *catalogFake) List(context.Context) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []catalog.Product
	for _, p := range f.products {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *catalogFake) Upsert(_ context.Context, p catalog.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
	return nil
}

func (f *catalogFake) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

type cartStore struct {
	mu    sync.Mutex
	carts map[string]map[string]int
}

func (m *cartStore) Items(_ context.Context, cartID string) ([]cart.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []cart.Item{}
	for id, q := range m.carts[cartID] {
		items = append(items, cart.Item{ProductID: id, Quantity: q})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

func (m *cartStore) Get(_ context.Context, cartID, productID string) (*cart.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.carts[cartID][productID]
	if !ok {
		return nil, nil
	}
	return &cart.Item{ProductID: productID, Quantity: q}, nil
}

func (m *cartStore) Add(_ context.Context, cartID, productID string) (cart.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.carts[cartID] == nil {
		m.carts[cartID] = map[string]int{}
	}
	if _, ok := m.carts[cartID][productID]; !ok {
		m.carts[cartID][productID] = cart.MinQuantity
	}
	return cart.Item{ProductID: productID, Quantity: m.carts[cartID][productID]}, nil
}

func (m *cartStore) SetQuantity(_ context.Context, cartID, productID string, q int) (cart.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[cartID][productID]; !ok {
		return cart.Item{}, cart.ErrNotInCart
	}
	m.carts[cartID][productID] = q
	return cart.Item{ProductID: productID, Quantity: q}, nil
}

func (m *cartStore) Remove(_ context.Context, cartID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts[cartID], productID)
	return nil
}

type reviewStore struct {
	mu      sync.Mutex
	reviews map[string]review.Review
	lists   int
	err     error
}

func (s *reviewStore) ListForProduct(_ context.Context, productID string) ([]review.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.err != nil {
		return nil, s.err
	}
	var out []review.Review
	for _, r := range s.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *reviewStore) ForUser(_ context.Context, productID, userID string) (*review.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.reviews[productID+"|"+userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *reviewStore) Upsert(_ context.Context, r review.Review) (*review.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	key := r.ProductID + "|" + r.UserID
	now := time.Now()
	if prev, ok := s.reviews[key]; ok {
		r.ID, r.CreatedAt = prev.ID, prev.CreatedAt
	} else {
		r.ID, r.CreatedAt = key, now
	}
	r.UpdatedAt = now
	s.reviews[key] = r
	return &r, nil
}

func (s *reviewStore) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	return d, ok, nil
}

func (m *memBackend) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *memBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// sessions resolves known session ids to users; unknown ones are signed out.
type sessions map[string]*authstate.User

func (s sessions) Stream(sessionID string) authstate.Stream {
	n := authstate.NewNotifier()
	n.Set(s[sessionID])
	return n
}
