package inventory

import "time"

// StockCommittedEvent is emitted when reserved stock is permanently deducted
// for a shipped order.
type StockCommittedEvent struct {
	OrderID    string
	SKU        string
	Quantity   int
	OccurredAt time.Time
}

func (StockCommittedEvent) EventName() string { return "inventory.committed" }

func NewStockCommittedEvent(orderID, sku string, quantity int) StockCommittedEvent {
	return StockCommittedEvent{
		OrderID:    orderID,
		SKU:        sku,
		Quantity:   quantity,
		OccurredAt: time.Now().UTC(),
	}
}

// StockReleasedEvent is emitted when a reservation is returned to the pool.
type StockReleasedEvent struct {
	OrderID    string
	SKU        string
	Quantity   int
	OccurredAt time.Time
}

func (StockReleasedEvent) EventName() string { return "inventory.released" }

func NewStockReleasedEvent(orderID, sku string, quantity int) StockReleasedEvent {
	return StockReleasedEvent{
		OrderID:    orderID,
		SKU:        sku,
		Quantity:   quantity,
		OccurredAt: time.Now().UTC(),
	}
}

// LowStockEvent fires when a mutation drops a SKU to or below its threshold.
type LowStockEvent struct {
	SKU        string
	Warehouse  string
	Available  int
	Threshold  int
	OccurredAt time.Time
}

func (LowStockEvent) EventName() string { return "inventory.low_stock" }

func NewLowStockEvent(item *StockItem) LowStockEvent {
	return LowStockEvent{
		SKU:        item.SKU,
		Warehouse:  item.Warehouse,
		Available:  item.Available(),
		Threshold:  item.LowStockThreshold,
		OccurredAt: time.Now().UTC(),
	}
}
