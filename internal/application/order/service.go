package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	cartapp "github.com/shopvn-labs/commerce-core/internal/application/cart"
	domain "github.com/shopvn-labs/commerce-core/internal/domain/order"
	domoutbox "github.com/shopvn-labs/commerce-core/internal/domain/outbox"
	"github.com/shopvn-labs/commerce-core/internal/observability"
	"github.com/shopvn-labs/commerce-core/internal/observability/logctx"
	"github.com/shopvn-labs/commerce-core/internal/pkg/keylock"
)

var (
	// ErrStockIssues aborts checkout when the cart no longer clears
	// validation against the ledger.
	ErrStockIssues = errors.New("order: cart has stock issues")
	// ErrTxnMismatch rejects a capture that does not belong to the order.
	ErrTxnMismatch = errors.New("order: transaction does not match order")
)

const publishTimeout = 300 * time.Millisecond

// Config carries checkout pricing defaults.
type Config struct {
	Currency    string
	ShippingFee decimal.Decimal
}

// Service drives the order lifecycle. Mutations on one order are serialized
// through a per-order lock; state legality itself is enforced by the order's
// state machine.
type Service struct {
	repo      domain.Repository
	carts     Carts
	txns      Transactions
	ids       IDGenerator
	publisher domoutbox.Publisher
	cfg       Config
	locks     *keylock.KeyLock

	log      observability.Logger
	tracer   observability.Tracer
	requests observability.Counter
	duration observability.Histogram
}

func NewService(
	repo domain.Repository,
	carts Carts,
	txns Transactions,
	ids IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
	cfg Config,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		repo:      repo,
		carts:     carts,
		txns:      txns,
		ids:       ids,
		publisher: publisher,
		cfg:       cfg,
		locks:     keylock.New(),
		log:       tel.Logger().With(observability.F("service", "order-service")),
		tracer:    tel.Tracer(),
		requests:  tel.Metrics().Counter(observability.MUsecaseRequests),
		duration:  tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

// CheckoutInput starts order creation for an authenticated customer.
type CheckoutInput struct {
	CustomerID    string
	PaymentMethod domain.PaymentMethod
	ShippingAddr  string
	Note          string
}

// Checkout converts the customer's cart into a pending order. Line prices are
// snapshotted from the cart and the cart's stock reservations carry over to
// the order unchanged, so no ledger traffic happens here.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (_ *domain.Order, err error) {
	ctx, done := s.observe(ctx, "order.checkout")
	defer func() { done(err) }()

	c, err := s.carts.GetByCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, fmt.Errorf("order: checkout: %w", errors.New("cart is empty"))
	}

	issues, err := s.carts.ValidateStock(ctx, cartapp.Owner{CustomerID: in.CustomerID})
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("%w: %d lines affected", ErrStockIssues, len(issues))
	}

	items := make([]domain.Item, 0, len(c.Lines))
	for _, line := range c.Lines {
		items = append(items, domain.Item{
			SKU:       line.SKU,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	o, err := domain.New(s.ids.NewID(), in.CustomerID, items, s.cfg.ShippingFee, s.cfg.Currency, in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	o.ShippingAddr = in.ShippingAddr
	o.Note = in.Note

	if err = s.repo.Insert(ctx, o); err != nil {
		return nil, err
	}
	if err = s.carts.ClearAfterCheckout(ctx, c.ID); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewOrderCreatedEvent(o))
	logctx.FromOr(ctx, s.log).Info("order_created",
		observability.F("order_id", o.ID),
		observability.F("order_number", o.Number),
		observability.F("total", o.Total.String()),
		observability.F("payment_method", string(o.PaymentMethod)),
	)
	return o, nil
}

// MarkPaid records a verified capture and moves the order to processing. The
// transaction must be a succeeded payment for this exact order.
func (s *Service) MarkPaid(ctx context.Context, orderID, txnID string) (err error) {
	ctx, done := s.observe(ctx, "order.mark_paid")
	defer func() { done(err) }()

	txn, err := s.txns.Get(ctx, txnID)
	if err != nil {
		return err
	}
	if !txn.IsCapture() || txn.OrderID != orderID {
		return ErrTxnMismatch
	}

	return s.withOrder(ctx, orderID, func(o *domain.Order) (domoutbox.Event, error) {
		if err := o.MarkPaid(txnID); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// Confirm acknowledges a cash-on-delivery order so it can ship.
func (s *Service) Confirm(ctx context.Context, orderID string) (err error) {
	ctx, done := s.observe(ctx, "order.confirm")
	defer func() { done(err) }()

	return s.withOrder(ctx, orderID, func(o *domain.Order) (domoutbox.Event, error) {
		return nil, o.Confirm()
	})
}

// Ship moves a paid order out of the warehouse. The emitted event drives the
// ledger commit.
func (s *Service) Ship(ctx context.Context, orderID, trackingCode string) (err error) {
	ctx, done := s.observe(ctx, "order.ship")
	defer func() { done(err) }()

	return s.withOrder(ctx, orderID, func(o *domain.Order) (domoutbox.Event, error) {
		if err := o.Ship(trackingCode); err != nil {
			return nil, err
		}
		return domain.NewOrderShippedEvent(o), nil
	})
}

// Complete finishes delivery. COD orders settle their payment here.
func (s *Service) Complete(ctx context.Context, orderID string) (err error) {
	ctx, done := s.observe(ctx, "order.complete")
	defer func() { done(err) }()

	return s.withOrder(ctx, orderID, func(o *domain.Order) (domoutbox.Event, error) {
		if err := o.Complete(); err != nil {
			return nil, err
		}
		return domain.NewOrderCompletedEvent(o), nil
	})
}

// Cancel aborts an order. The emitted event lets the ledger return whatever
// the order still holds.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) (err error) {
	ctx, done := s.observe(ctx, "order.cancel")
	defer func() { done(err) }()

	return s.withOrder(ctx, orderID, func(o *domain.Order) (domoutbox.Event, error) {
		if err := o.Cancel(reason); err != nil {
			return nil, err
		}
		return domain.NewOrderCancelledEvent(o, reason), nil
	})
}

// MarkRefunded moves an order to refunded after billing confirms the money
// went back in full.
func (s *Service) MarkRefunded(ctx context.Context, orderID string) (err error) {
	ctx, done := s.observe(ctx, "order.mark_refunded")
	defer func() { done(err) }()

	return s.withOrder(ctx, orderID, func(o *domain.Order) (domoutbox.Event, error) {
		if err := o.Refund(); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// SettleStock flips the order's stock bookkeeping once the ledger reports a
// commit or release. Replays land on ErrStockAlreadySettled and are dropped.
func (s *Service) SettleStock(ctx context.Context, orderID string, committed bool) error {
	err := s.withOrder(ctx, orderID, func(o *domain.Order) (domoutbox.Event, error) {
		var serr error
		if committed {
			serr = o.CommitStock()
		} else {
			serr = o.ReleaseStock()
		}
		return nil, serr
	})
	if errors.Is(err, domain.ErrStockAlreadySettled) {
		return nil
	}
	return err
}

func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// withOrder loads, mutates, and saves one order under its lock, then
// publishes whatever event the mutation produced.
func (s *Service) withOrder(ctx context.Context, orderID string, fn func(o *domain.Order) (domoutbox.Event, error)) error {
	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	from := o.Status
	evt, err := fn(o)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return err
	}
	if from != o.Status {
		logctx.FromOr(ctx, s.log).Info("order_status_changed",
			observability.F("order_id", o.ID),
			observability.F("from", string(from)),
			observability.F("to", string(o.Status)),
		)
	}
	if evt != nil {
		s.publish(ctx, evt)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		logctx.FromOr(ctx, s.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.Err(err),
		)
	}
}

func (s *Service) observe(ctx context.Context, name string) (context.Context, func(err error)) {
	ctx, span := s.tracer.Start(ctx, name)
	start := time.Now()
	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
		}
		s.requests.Add(1,
			observability.L("use_case", name),
			observability.L("outcome", outcome),
		)
		s.duration.Observe(time.Since(start).Seconds(),
			observability.L("use_case", name),
			observability.L("outcome", outcome),
		)
		span.End()
	}
}
