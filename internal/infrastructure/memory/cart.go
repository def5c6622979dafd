package memory

import (
	"context"
	"sync"
	"time"

	domcart "github.com/shopvn-labs/commerce-core/internal/domain/cart"
)

// CartRepository stores carts with customer and guest-token lookups.
type CartRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domcart.Cart
	byOwner map[string]string // customer ID -> cart ID
	byGuest map[string]string // guest token -> cart ID
}

func NewCartRepository() *CartRepository {
	return &CartRepository{
		byID:    make(map[string]*domcart.Cart),
		byOwner: make(map[string]string),
		byGuest: make(map[string]string),
	}
}

func (r *CartRepository) Save(_ context.Context, c *domcart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = c.Clone()
	if c.CustomerID != "" {
		r.byOwner[c.CustomerID] = c.ID
	}
	if c.GuestToken != "" {
		r.byGuest[c.GuestToken] = c.ID
	}
	return nil
}

func (r *CartRepository) FindByID(_ context.Context, id string) (*domcart.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, domcart.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CartRepository) FindByCustomer(_ context.Context, customerID string) (*domcart.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOwner[customerID]
	if !ok {
		return nil, domcart.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *CartRepository) FindByGuestToken(_ context.Context, token string) (*domcart.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byGuest[token]
	if !ok {
		return nil, domcart.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *CartRepository) ListExpiredGuest(_ context.Context, asOf time.Time) ([]*domcart.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domcart.Cart
	for _, c := range r.byID {
		if c.IsGuest() && !c.ExpiresAt.IsZero() && asOf.After(c.ExpiresAt) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (r *CartRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	if c.CustomerID != "" {
		delete(r.byOwner, c.CustomerID)
	}
	if c.GuestToken != "" {
		delete(r.byGuest, c.GuestToken)
	}
	return nil
}
