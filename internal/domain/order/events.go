package order

import "time"

// LineQty carries just enough of an order line for stock event handlers to be
// self-contained.
type LineQty struct {
	SKU      string
	Quantity int
}

func lineQtys(o *Order) []LineQty {
	out := make([]LineQty, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, LineQty{SKU: it.SKU, Quantity: it.Quantity})
	}
	return out
}

// OrderCreatedEvent is a domain event emitted when checkout converts a cart.
type OrderCreatedEvent struct {
	OrderID    string
	Number     string
	CustomerID string
	Lines      []LineQty
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    o.ID,
		Number:     o.Number,
		CustomerID: o.CustomerID,
		Lines:      lineQtys(o),
		OccurredAt: time.Now().UTC(),
	}
}

// OrderShippedEvent is emitted when an order leaves the warehouse; the
// inventory worker commits the reservation on it.
type OrderShippedEvent struct {
	OrderID    string
	Lines      []LineQty
	OccurredAt time.Time
}

func (OrderShippedEvent) EventName() string { return "order.shipped" }

func NewOrderShippedEvent(o *Order) OrderShippedEvent {
	return OrderShippedEvent{
		OrderID:    o.ID,
		Lines:      lineQtys(o),
		OccurredAt: time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted on cancellation; the inventory worker
// releases whatever the order still has reserved.
type OrderCancelledEvent struct {
	OrderID    string
	Reason     string
	Lines      []LineQty
	OccurredAt time.Time
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order, reason string) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:    o.ID,
		Reason:     reason,
		Lines:      lineQtys(o),
		OccurredAt: time.Now().UTC(),
	}
}

// OrderCompletedEvent is emitted when delivery finishes.
type OrderCompletedEvent struct {
	OrderID    string
	OccurredAt time.Time
}

func (OrderCompletedEvent) EventName() string { return "order.completed" }

func NewOrderCompletedEvent(o *Order) OrderCompletedEvent {
	return OrderCompletedEvent{
		OrderID:    o.ID,
		OccurredAt: time.Now().UTC(),
	}
}
