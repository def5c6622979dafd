package memory

import (
	"context"
	"sync"
	"time"
)

// DedupStore is the single-process stand-in for the redis dedup cache.
type DedupStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewDedupStore() *DedupStore {
	return &DedupStore{seen: make(map[string]time.Time)}
}

func (d *DedupStore) Seen(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	if deadline, ok := d.seen[key]; ok && now.Before(deadline) {
		return true, nil
	}
	d.seen[key] = now.Add(ttl)
	return false, nil
}
