package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// Insert fails with ErrDuplicateCallback when a transaction with the same
	// (gateway, reference) pair already exists. This uniqueness is the
	// idempotency anchor for callback replay.
	Insert(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	FindByGatewayReference(ctx context.Context, gw Gateway, reference string) (*Transaction, error)
	ListByOrder(ctx context.Context, orderID string) ([]*Transaction, error)
}

// CapturedTotal sums succeeded payment amounts from a transaction list.
func CapturedTotal(txns []*Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		if t.IsCapture() {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// RefundedTotal sums succeeded refund amounts from a transaction list.
func RefundedTotal(txns []*Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		if t.IsRefund() {
			total = total.Add(t.Amount)
		}
	}
	return total
}
