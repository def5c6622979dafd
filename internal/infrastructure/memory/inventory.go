package memory

import (
	"context"
	"sort"
	"sync"

	dominventory "github.com/shopvn-labs/commerce-core/internal/domain/inventory"
)

// InventoryRepository keeps stock rows and their movement log in process
// memory. Movements are indexed by (sku, reason, reference) so settlement
// replay checks stay O(1).
type InventoryRepository struct {
	mu        sync.RWMutex
	items     map[string]*dominventory.StockItem
	movements map[string][]*dominventory.Movement
	refIndex  map[string]struct{}
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		items:     make(map[string]*dominventory.StockItem),
		movements: make(map[string][]*dominventory.Movement),
		refIndex:  make(map[string]struct{}),
	}
}

func (r *InventoryRepository) Get(_ context.Context, sku string) (*dominventory.StockItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[sku]
	if !ok {
		return nil, dominventory.ErrNotFound
	}
	return cloneStock(item), nil
}

func (r *InventoryRepository) Save(_ context.Context, item *dominventory.StockItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.SKU] = cloneStock(item)
	return nil
}

func (r *InventoryRepository) List(_ context.Context) ([]*dominventory.StockItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*dominventory.StockItem, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, cloneStock(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (r *InventoryRepository) AppendMovement(_ context.Context, m *dominventory.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.movements[m.SKU] = append(r.movements[m.SKU], &cp)
	r.refIndex[movementKey(m.SKU, m.Reason, m.Reference)] = struct{}{}
	return nil
}

func (r *InventoryRepository) HasMovement(_ context.Context, sku string, reason dominventory.MovementReason, reference string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.refIndex[movementKey(sku, reason, reference)]
	return ok, nil
}

// Movements returns the newest limit movements for a SKU, newest first.
// A non-positive limit returns everything.
func (r *InventoryRepository) Movements(_ context.Context, sku string, limit int) ([]*dominventory.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	log := r.movements[sku]
	out := make([]*dominventory.Movement, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		cp := *log[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func movementKey(sku string, reason dominventory.MovementReason, reference string) string {
	return sku + "|" + string(reason) + "|" + reference
}

func cloneStock(item *dominventory.StockItem) *dominventory.StockItem {
	cp := *item
	return &cp
}
