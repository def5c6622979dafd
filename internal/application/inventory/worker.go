package inventory

import (
	"context"
	"fmt"

	domorder "github.com/shopvn-labs/commerce-core/internal/domain/order"
	domoutbox "github.com/shopvn-labs/commerce-core/internal/domain/outbox"
	"github.com/shopvn-labs/commerce-core/internal/observability"
)

// Worker wires order lifecycle events into ledger settlement. Shipment
// commits the reservation, cancellation releases it. Handlers tolerate
// redelivery because settlement is keyed on the order reference.
type Worker struct {
	service *Service
	log     observability.Logger
}

func NewWorker(service *Service, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		service: service,
		log:     tel.Logger().With(observability.F("worker", "inventory")),
	}
}

func (w *Worker) Register(sub domoutbox.Subscriber) {
	sub.Subscribe(domorder.OrderShippedEvent{}.EventName(), w.handleOrderShipped)
	sub.Subscribe(domorder.OrderCancelledEvent{}.EventName(), w.handleOrderCancelled)
}

func (w *Worker) handleOrderShipped(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderShippedEvent)
	if !ok {
		return fmt.Errorf("inventory worker: unexpected payload for %s", e.EventName())
	}
	return w.service.CommitForOrder(ctx, evt.OrderID, toLineQtys(evt.Lines))
}

func (w *Worker) handleOrderCancelled(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderCancelledEvent)
	if !ok {
		return fmt.Errorf("inventory worker: unexpected payload for %s", e.EventName())
	}
	return w.service.ReleaseForOrder(ctx, evt.OrderID, toLineQtys(evt.Lines))
}

func toLineQtys(lines []domorder.LineQty) []LineQty {
	out := make([]LineQty, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineQty{SKU: l.SKU, Quantity: l.Quantity})
	}
	return out
}
