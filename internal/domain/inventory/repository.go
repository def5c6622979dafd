package inventory

import "context"

type Repository interface {
	Get(ctx context.Context, sku string) (*StockItem, error)
	Save(ctx context.Context, item *StockItem) error
	List(ctx context.Context) ([]*StockItem, error)
	AppendMovement(ctx context.Context, m *Movement) error
	// HasMovement reports whether a movement with the given reason and
	// reference was already recorded for the SKU. Event handlers use it to
	// stay idempotent under replay.
	HasMovement(ctx context.Context, sku string, reason MovementReason, reference string) (bool, error)
	Movements(ctx context.Context, sku string, limit int) ([]*Movement, error)
}
