package memory

import (
	"context"
	"sort"
	"sync"

	domorder "github.com/shopvn-labs/commerce-core/internal/domain/order"
)

// OrderRepository stores orders with a unique order-number index.
type OrderRepository struct {
	mu       sync.RWMutex
	byID     map[string]*domorder.Order
	byNumber map[string]string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		byID:     make(map[string]*domorder.Order),
		byNumber: make(map[string]string),
	}
}

func (r *OrderRepository) Insert(_ context.Context, o *domorder.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[o.ID]; exists {
		return domorder.ErrConflict
	}
	if _, exists := r.byNumber[o.Number]; exists {
		return domorder.ErrConflict
	}
	r.byID[o.ID] = o.Clone()
	r.byNumber[o.Number] = o.ID
	return nil
}

func (r *OrderRepository) Get(_ context.Context, id string) (*domorder.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, domorder.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) GetByNumber(_ context.Context, number string) (*domorder.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byNumber[number]
	if !ok {
		return nil, domorder.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *OrderRepository) Update(_ context.Context, o *domorder.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[o.ID]; !ok {
		return domorder.ErrNotFound
	}
	r.byID[o.ID] = o.Clone()
	return nil
}

func (r *OrderRepository) ListByCustomer(_ context.Context, customerID string) ([]*domorder.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domorder.Order
	for _, o := range r.byID {
		if o.CustomerID == customerID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
