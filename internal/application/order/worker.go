package order

import (
	"context"
	"errors"
	"fmt"

	dombilling "github.com/shopvn-labs/commerce-core/internal/domain/billing"
	dominventory "github.com/shopvn-labs/commerce-core/internal/domain/inventory"
	domain "github.com/shopvn-labs/commerce-core/internal/domain/order"
	domoutbox "github.com/shopvn-labs/commerce-core/internal/domain/outbox"
	"github.com/shopvn-labs/commerce-core/internal/observability"
)

// Worker advances orders on billing and inventory events: a capture moves
// the order to processing, a full refund closes it out, and ledger
// settlement events keep the order's stock bookkeeping honest.
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
		log:     tel.Logger().With(observability.F("worker", "order")),
	}
}

func (w *Worker) Register(sub domoutbox.Subscriber) {
	sub.Subscribe(dombilling.PaymentCapturedEvent{}.EventName(), w.handlePaymentCaptured)
	sub.Subscribe(dombilling.PaymentRefundedEvent{}.EventName(), w.handlePaymentRefunded)
	sub.Subscribe(dominventory.StockCommittedEvent{}.EventName(), w.handleStockCommitted)
	sub.Subscribe(dominventory.StockReleasedEvent{}.EventName(), w.handleStockReleased)
}

func (w *Worker) handlePaymentCaptured(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dombilling.PaymentCapturedEvent)
	if !ok {
		return fmt.Errorf("order worker: unexpected payload for %s", e.EventName())
	}
	err := w.service.MarkPaid(ctx, evt.OrderID, evt.TransactionID)
	if errors.Is(err, domain.ErrInvalidStateTransition) {
		// Redelivery after the order already advanced.
		w.log.Debug("capture_replay_ignored",
			observability.F("order_id", evt.OrderID),
			observability.F("txn_id", evt.TransactionID),
		)
		return nil
	}
	return err
}

func (w *Worker) handlePaymentRefunded(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dombilling.PaymentRefundedEvent)
	if !ok {
		return fmt.Errorf("order worker: unexpected payload for %s", e.EventName())
	}
	if !evt.Full {
		return nil
	}
	err := w.service.MarkRefunded(ctx, evt.OrderID)
	if errors.Is(err, domain.ErrInvalidStateTransition) {
		return nil
	}
	return err
}

func (w *Worker) handleStockCommitted(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dominventory.StockCommittedEvent)
	if !ok {
		return fmt.Errorf("order worker: unexpected payload for %s", e.EventName())
	}
	return w.service.SettleStock(ctx, evt.OrderID, true)
}

func (w *Worker) handleStockReleased(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dominventory.StockReleasedEvent)
	if !ok {
		return fmt.Errorf("order worker: unexpected payload for %s", e.EventName())
	}
	return w.service.SettleStock(ctx, evt.OrderID, false)
}
