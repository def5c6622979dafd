package cart

import (
	"context"

	dominventory "github.com/shopvn-labs/commerce-core/internal/domain/inventory"
)

// Ledger is the slice of the inventory service the cart needs: holding and
// returning reservations, and reading stock rows during merges and
// validation.
type Ledger interface {
	Reserve(ctx context.Context, sku string, qty int, reference string) error
	Release(ctx context.Context, sku string, qty int, reference string) error
	Get(ctx context.Context, sku string) (*dominventory.StockItem, error)
}

// IDGenerator mints cart identifiers.
type IDGenerator interface {
	NewID() string
}
