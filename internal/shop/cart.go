package shop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// ErrCartNotFound indicates no cart exists for the session token.
var ErrCartNotFound = errors.New("cart not found")

// Cart is a snapshot of a session's cart.
type Cart struct {
	Token string         `json:"token"`
	Items map[string]int `json:"items"`
}

// LineItemCount returns the number of distinct line items.
func (c Cart) LineItemCount() int {
	return len(c.Items)
}

// CartStore keeps carts in memory, keyed by session token.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string]map[string]int
}

var _ storefront.CartLoader = (*CartStore)(nil)

// NewCartStore creates an empty store.
func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]map[string]int)}
}

// Add puts quantity of a product into the cart of token.
func (s *CartStore) Add(token, productID string, quantity int) error {
	if token == "" {
		return fmt.Errorf("add to cart: empty session token")
	}
	if quantity <= 0 {
		return fmt.Errorf("add to cart: quantity must be positive (got %d)", quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[token]
	if !ok {
		items = make(map[string]int)
		s.carts[token] = items
	}
	items[productID] += quantity
	return nil
}

// Get returns a copy of the cart of token.
func (s *CartStore) Get(token string) (Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, ok := s.carts[token]
	if !ok {
		return Cart{}, ErrCartNotFound
	}
	cp := make(map[string]int, len(items))
	for k, v := range items {
		cp[k] = v
	}
	return Cart{Token: token, Items: cp}, nil
}

// Clear removes the cart of token.
func (s *CartStore) Clear(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, token)
}

// Count returns the line item count of token's cart, 0 when absent.
func (s *CartStore) Count(token string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts[token])
}

// Load implements storefront.CartLoader. Visitors without a cart get an
// empty one.
func (s *CartStore) Load(_ context.Context, vc storefront.VisitorContext) (storefront.Cart, error) {
	cart, err := s.Get(vc.Token())
	if errors.Is(err, ErrCartNotFound) {
		return Cart{Token: vc.Token()}, nil
	}
	return cart, err
}
