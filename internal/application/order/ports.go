package order

import (
	"context"

	cartapp "github.com/shopvn-labs/commerce-core/internal/application/cart"
	dombilling "github.com/shopvn-labs/commerce-core/internal/domain/billing"
	domcart "github.com/shopvn-labs/commerce-core/internal/domain/cart"
)

// Carts is the slice of the cart service checkout consumes.
type Carts interface {
	GetByCustomer(ctx context.Context, customerID string) (*domcart.Cart, error)
	ValidateStock(ctx context.Context, owner cartapp.Owner) ([]cartapp.StockIssue, error)
	ClearAfterCheckout(ctx context.Context, cartID string) error
}

// Transactions lets the order service verify a payment capture before it
// marks an order paid.
type Transactions interface {
	Get(ctx context.Context, txnID string) (*dombilling.Transaction, error)
}

// IDGenerator mints order identifiers.
type IDGenerator interface {
	NewID() string
}
