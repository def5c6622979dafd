package billing

import (
	"context"
	"time"

	domorder "github.com/shopvn-labs/commerce-core/internal/domain/order"
)

// Orders is the slice of the order service reconciliation needs: amounts to
// charge and the ability to check a callback against the order it claims.
type Orders interface {
	Get(ctx context.Context, orderID string) (*domorder.Order, error)
}

// DedupStore remembers callback keys for a while so busy gateways that
// re-fire notifications get answered without a repository round trip. It is a
// fast path only; the (gateway, reference) unique constraint stays
// authoritative.
type DedupStore interface {
	// Seen marks key and reports whether it was already marked.
	Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
