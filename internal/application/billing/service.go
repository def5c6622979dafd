package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/shopvn-labs/commerce-core/internal/domain/billing"
	domorder "github.com/shopvn-labs/commerce-core/internal/domain/order"
	domoutbox "github.com/shopvn-labs/commerce-core/internal/domain/outbox"
	"github.com/shopvn-labs/commerce-core/internal/observability"
	"github.com/shopvn-labs/commerce-core/internal/observability/logctx"
	"github.com/shopvn-labs/commerce-core/internal/pkg/keylock"
)

var (
	// ErrNotPayable rejects payment initiation for orders past pending.
	ErrNotPayable = errors.New("billing: order is not payable")
	// ErrRefundUnsupported rejects refunds on gateways without a refund API.
	ErrRefundUnsupported = errors.New("billing: gateway does not support refunds")
)

const (
	publishTimeout = 300 * time.Millisecond
	dedupTTL       = 48 * time.Hour
)

// Service is the reconciliation layer between payment gateways and the order
// book. It turns gateway callbacks into exactly one transaction each and
// emits the events the order worker advances on.
type Service struct {
	repo     domain.Repository
	orders   Orders
	gateways map[domain.Gateway]domain.GatewayAdapter
	dedup    DedupStore
	bus      domoutbox.Publisher
	locks    *keylock.KeyLock

	log             observability.Logger
	tracer          observability.Tracer
	external        observability.Counter
	externalLatency observability.Histogram
}

func NewService(
	repo domain.Repository,
	orders Orders,
	adapters []domain.GatewayAdapter,
	dedup DedupStore,
	bus domoutbox.Publisher,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	gateways := make(map[domain.Gateway]domain.GatewayAdapter, len(adapters))
	for _, a := range adapters {
		gateways[a.Code()] = a
	}
	return &Service{
		repo:            repo,
		orders:          orders,
		gateways:        gateways,
		dedup:           dedup,
		bus:             bus,
		locks:           keylock.New(),
		log:             tel.Logger().With(observability.F("service", "billing-service")),
		tracer:          tel.Tracer(),
		external:        tel.Metrics().Counter(observability.MExternalRequests),
		externalLatency: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

// InitiatePayment asks the gateway backing the order's payment method for a
// payment intent (typically a redirect URL). Nothing is recorded yet; the
// transaction is born from the gateway's callback.
func (s *Service) InitiatePayment(ctx context.Context, orderID string) (*domain.PaymentIntent, error) {
	ctx, span := s.tracer.Start(ctx, "billing.initiate_payment")
	defer span.End()

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domorder.StatusPending || o.Paid {
		return nil, ErrNotPayable
	}
	adapter, err := s.adapterFor(domain.Gateway(o.PaymentMethod))
	if err != nil {
		return nil, err
	}

	done := s.externalCall(adapter.Code(), "create_payment")
	intent, err := adapter.CreatePayment(ctx, o.ID, o.Total, o.Currency)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("billing: create payment on %s: %w", adapter.Code(), err)
	}
	logctx.FromOr(ctx, s.log).Info("payment_initiated",
		observability.F("order_id", o.ID),
		observability.F("gateway", string(adapter.Code())),
		observability.F("reference", intent.Reference),
	)
	return intent, nil
}

// HandleCallback reconciles one gateway notification. Replays of a reference
// already on file return the original transaction and emit nothing; the
// insert-time uniqueness of (gateway, reference) makes concurrent duplicates
// collapse to one winner.
func (s *Service) HandleCallback(ctx context.Context, cb domain.Callback) (_ *domain.Transaction, err error) {
	ctx, span := s.tracer.Start(ctx, "billing.handle_callback")
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	adapter, err := s.adapterFor(cb.Gateway)
	if err != nil {
		return nil, err
	}
	if err = adapter.VerifyCallback(ctx, cb); err != nil {
		logctx.FromOr(ctx, s.log).Warn("callback_rejected",
			observability.F("gateway", string(cb.Gateway)),
			observability.F("reference", cb.Reference),
			observability.Err(err),
		)
		return nil, err
	}

	// Fast path for re-fired notifications. A marked key whose record is not
	// on file yet means we raced the first delivery, so fall through and let
	// the insert decide.
	if s.dedup != nil {
		key := fmt.Sprintf("dedup:billing:%s:%s", cb.Gateway, cb.Reference)
		seen, derr := s.dedup.Seen(ctx, key, dedupTTL)
		if derr != nil {
			logctx.FromOr(ctx, s.log).Warn("dedup_unavailable", observability.Err(derr))
		} else if seen {
			if existing, ferr := s.repo.FindByGatewayReference(ctx, cb.Gateway, cb.Reference); ferr == nil {
				return existing, nil
			}
		}
	}

	if _, err = s.orders.Get(ctx, cb.OrderID); err != nil {
		return nil, fmt.Errorf("billing: callback for unknown order %s: %w", cb.OrderID, err)
	}

	status := domain.StatusSucceeded
	if !cb.Success {
		status = domain.StatusFailed
	}
	txn, err := domain.NewTransaction(cb.OrderID, cb.Gateway, cb.Reference, domain.KindPayment, status, cb.Amount, cb.Currency)
	if err != nil {
		return nil, err
	}
	txn.FailCode = cb.FailCode

	if err = s.repo.Insert(ctx, txn); err != nil {
		if errors.Is(err, domain.ErrDuplicateCallback) {
			// Lost the race to an identical callback. Serve the winner.
			return s.repo.FindByGatewayReference(ctx, cb.Gateway, cb.Reference)
		}
		return nil, err
	}

	if cb.Success {
		s.publish(ctx, domain.NewPaymentCapturedEvent(txn))
	} else {
		s.publish(ctx, domain.NewPaymentFailedEvent(txn))
	}
	logctx.FromOr(ctx, s.log).Info("callback_recorded",
		observability.F("order_id", cb.OrderID),
		observability.F("gateway", string(cb.Gateway)),
		observability.F("reference", cb.Reference),
		observability.F("txn_id", txn.ID),
		observability.F("success", cb.Success),
	)
	return txn, nil
}

// RefundInput requests money back on an order. A zero Amount means refund
// whatever remains of the captured total.
type RefundInput struct {
	OrderID string
	Amount  decimal.Decimal
	Reason  string
}

// Refund sends a refund to the capturing gateway and records it. Cumulative
// refunds can never pass the captured total; the per-order lock keeps two
// concurrent refunds from both reading the same remainder.
func (s *Service) Refund(ctx context.Context, in RefundInput) (_ *domain.Transaction, err error) {
	ctx, span := s.tracer.Start(ctx, "billing.refund")
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	s.locks.Lock(in.OrderID)
	defer s.locks.Unlock(in.OrderID)

	txns, err := s.repo.ListByOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	captured := domain.CapturedTotal(txns)
	refunded := domain.RefundedTotal(txns)
	if !captured.IsPositive() {
		return nil, domain.ErrNothingCaptured
	}

	remaining := captured.Sub(refunded)
	amount := in.Amount
	if amount.IsZero() {
		amount = remaining
	}
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if amount.GreaterThan(remaining) {
		return nil, fmt.Errorf("%w: requested %s, refundable %s",
			domain.ErrRefundExceedsCaptured, amount.String(), remaining.String())
	}

	capture := firstCapture(txns)
	adapter, err := s.adapterFor(capture.Gateway)
	if err != nil {
		return nil, err
	}
	if !adapter.SupportsRefund() {
		return nil, fmt.Errorf("%w: %s", ErrRefundUnsupported, capture.Gateway)
	}

	done := s.externalCall(adapter.Code(), "refund")
	outcome, err := adapter.Refund(ctx, capture.Reference, amount, in.Reason)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("billing: refund on %s: %w", adapter.Code(), err)
	}
	if !outcome.Succeeded {
		return nil, fmt.Errorf("billing: gateway declined refund: %s", outcome.FailCode)
	}

	refund, err := domain.NewTransaction(in.OrderID, capture.Gateway, outcome.Reference, domain.KindRefund, domain.StatusSucceeded, amount, capture.Currency)
	if err != nil {
		return nil, err
	}
	refund.ID = domain.NewRefundID()
	if err = s.repo.Insert(ctx, refund); err != nil {
		return nil, err
	}

	full := refunded.Add(amount).Equal(captured)
	s.publish(ctx, domain.NewPaymentRefundedEvent(refund, full))
	logctx.FromOr(ctx, s.log).Info("refund_recorded",
		observability.F("order_id", in.OrderID),
		observability.F("txn_id", refund.ID),
		observability.F("amount", amount.String()),
		observability.F("full", full),
	)
	return refund, nil
}

// ListByOrder returns the order's audit trail, captures and refunds alike.
func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]*domain.Transaction, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

// Get returns one transaction by its TXN/REF identifier.
func (s *Service) Get(ctx context.Context, txnID string) (*domain.Transaction, error) {
	return s.repo.Get(ctx, txnID)
}

func (s *Service) adapterFor(gw domain.Gateway) (domain.GatewayAdapter, error) {
	adapter, ok := s.gateways[gw]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownGateway, gw)
	}
	return adapter, nil
}

func firstCapture(txns []*domain.Transaction) *domain.Transaction {
	for _, t := range txns {
		if t.IsCapture() {
			return t
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) {
	if s.bus == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.bus.Publish(pubCtx, e); err != nil {
		logctx.FromOr(ctx, s.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.Err(err),
		)
	}
}

// externalCall times one gateway round trip; invoke the returned func with
// the call's error once it finishes.
func (s *Service) externalCall(gw domain.Gateway, op string) func(err error) {
	start := time.Now()
	return func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		s.external.Add(1,
			observability.L("peer", string(gw)),
			observability.L("endpoint", op),
			observability.L("outcome", outcome),
		)
		s.externalLatency.Observe(time.Since(start).Seconds(),
			observability.L("peer", string(gw)),
			observability.L("endpoint", op),
		)
	}
}
