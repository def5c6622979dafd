package memory

import (
	"context"
	"sort"
	"sync"

	dombilling "github.com/shopvn-labs/commerce-core/internal/domain/billing"
)

// TransactionRepository is the append-only money trail. The (gateway,
// reference) pair is unique; a second insert with the same pair fails with
// ErrDuplicateCallback regardless of amount or status, mirroring a database
// unique constraint.
type TransactionRepository struct {
	mu    sync.RWMutex
	byID  map[string]*dombilling.Transaction
	byRef map[string]string
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		byID:  make(map[string]*dombilling.Transaction),
		byRef: make(map[string]string),
	}
}

func (r *TransactionRepository) Insert(_ context.Context, t *dombilling.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := refKey(t.Gateway, t.Reference)
	if _, exists := r.byRef[key]; exists {
		return dombilling.ErrDuplicateCallback
	}
	cp := *t
	r.byID[t.ID] = &cp
	r.byRef[key] = t.ID
	return nil
}

func (r *TransactionRepository) Get(_ context.Context, id string) (*dombilling.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, dombilling.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TransactionRepository) FindByGatewayReference(_ context.Context, gw dombilling.Gateway, reference string) (*dombilling.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRef[refKey(gw, reference)]
	if !ok {
		return nil, dombilling.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *TransactionRepository) ListByOrder(_ context.Context, orderID string) ([]*dombilling.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*dombilling.Transaction
	for _, t := range r.byID {
		if t.OrderID == orderID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func refKey(gw dombilling.Gateway, reference string) string {
	return string(gw) + "|" + reference
}
