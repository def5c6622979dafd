package billing

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/shopvn-labs/commerce-core/internal/domain/billing"
	domorder "github.com/shopvn-labs/commerce-core/internal/domain/order"
	domoutbox "github.com/shopvn-labs/commerce-core/internal/domain/outbox"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/gateway"
	"github.com/shopvn-labs/commerce-core/internal/infrastructure/memory"
)

const vnpaySecret = "vnpay-test-secret"

type eventRecorder struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (r *eventRecorder) Publish(_ context.Context, e domoutbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventName())
	}
	return out
}

func newStack(t *testing.T) (*Service, *memory.TransactionRepository, *memory.OrderRepository, *eventRecorder) {
	t.Helper()
	txns := memory.NewTransactionRepository()
	orders := memory.NewOrderRepository()
	rec := &eventRecorder{}
	svc := NewService(
		txns,
		orders,
		gateway.All(vnpaySecret, "momo-test", "stripe-test"),
		memory.NewDedupStore(),
		rec,
		nil,
	)
	return svc, txns, orders, rec
}

func seedOrder(t *testing.T, orders *memory.OrderRepository, method domorder.PaymentMethod) *domorder.Order {
	t.Helper()
	o, err := domorder.New("ord-1", "cust-1", []domorder.Item{
		{SKU: "SKU-1", Quantity: 2, UnitPrice: decimal.NewFromInt(150000)},
	}, decimal.NewFromInt(30000), "VND", method)
	require.NoError(t, err)
	require.NoError(t, orders.Insert(context.Background(), o))
	return o
}

func signedCallback(orderID string, amount int64, success bool) domain.Callback {
	raw := map[string]string{
		"vnp_TxnRef":  "VNP-" + orderID,
		"vnp_OrderId": orderID,
		"vnp_Amount":  decimal.NewFromInt(amount).String(),
	}
	return domain.Callback{
		Gateway:   domain.GatewayVNPay,
		OrderID:   orderID,
		Reference: "VNP-" + orderID,
		Amount:    decimal.NewFromInt(amount),
		Currency:  "VND",
		Success:   success,
		Signature: domain.Sign(vnpaySecret, domain.CanonicalQuery(raw)),
		Raw:       raw,
	}
}

func TestHandleCallbackRecordsCapture(t *testing.T) {
	svc, txns, orders, rec := newStack(t)
	o := seedOrder(t, orders, domorder.PaymentVNPay)
	ctx := context.Background()

	txn, err := svc.HandleCallback(ctx, signedCallback(o.ID, 330000, true))
	require.NoError(t, err)
	assert.True(t, txn.IsCapture())
	assert.Equal(t, o.ID, txn.OrderID)

	stored, err := txns.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, []string{"payment.captured"}, rec.names())
}

func TestHandleCallbackReplayYieldsSameTransaction(t *testing.T) {
	svc, txns, orders, rec := newStack(t)
	o := seedOrder(t, orders, domorder.PaymentVNPay)
	ctx := context.Background()
	cb := signedCallback(o.ID, 330000, true)

	first, err := svc.HandleCallback(ctx, cb)
	require.NoError(t, err)
	second, err := svc.HandleCallback(ctx, cb)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	stored, err := txns.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1, "replay must not append to the audit trail")
	assert.Equal(t, []string{"payment.captured"}, rec.names(), "replay must not re-emit")
}

func TestHandleCallbackConcurrentDuplicates(t *testing.T) {
	svc, txns, orders, rec := newStack(t)
	o := seedOrder(t, orders, domorder.PaymentVNPay)
	ctx := context.Background()
	cb := signedCallback(o.ID, 330000, true)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.HandleCallback(ctx, cb)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	stored, err := txns.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, []string{"payment.captured"}, rec.names())
}

func TestHandleCallbackRejectsBadSignature(t *testing.T) {
	svc, txns, orders, _ := newStack(t)
	o := seedOrder(t, orders, domorder.PaymentVNPay)
	ctx := context.Background()

	cb := signedCallback(o.ID, 330000, true)
	cb.Signature = "deadbeef"

	_, err := svc.HandleCallback(ctx, cb)
	require.ErrorIs(t, err, domain.ErrSignatureMismatch)

	stored, err := txns.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestHandleCallbackUnknownGateway(t *testing.T) {
	svc, _, orders, _ := newStack(t)
	o := seedOrder(t, orders, domorder.PaymentVNPay)

	cb := signedCallback(o.ID, 330000, true)
	cb.Gateway = "paypal"
	_, err := svc.HandleCallback(context.Background(), cb)
	require.ErrorIs(t, err, domain.ErrUnknownGateway)
}

func TestHandleCallbackRecordsDecline(t *testing.T) {
	svc, _, orders, rec := newStack(t)
	o := seedOrder(t, orders, domorder.PaymentVNPay)

	cb := signedCallback(o.ID, 330000, false)
	cb.FailCode = "24"
	txn, err := svc.HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, txn.Status)
	assert.False(t, txn.IsCapture())
	assert.Equal(t, []string{"payment.failed"}, rec.names())
}

func TestInitiatePayment(t *testing.T) {
	svc, _, orders, _ := newStack(t)
	o := seedOrder(t, orders, domorder.PaymentVNPay)
	ctx := context.Background()

	intent, err := svc.InitiatePayment(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "VNP-"+o.ID, intent.Reference)
	assert.Contains(t, intent.PaymentURL, "vnp_SecureHash=")

	// Paid orders are not payable again.
	paid, err := orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.NoError(t, paid.MarkPaid("TXN-1"))
	require.NoError(t, orders.Update(ctx, paid))

	_, err = svc.InitiatePayment(ctx, o.ID)
	require.ErrorIs(t, err, ErrNotPayable)
}

func TestRefundPartialThenFull(t *testing.T) {
	svc, _, orders, rec := newStack(t)
	o := seedOrder(t, orders, domorder.PaymentVNPay)
	ctx := context.Background()
	_, err := svc.HandleCallback(ctx, signedCallback(o.ID, 330000, true))
	require.NoError(t, err)

	partial, err := svc.Refund(ctx, RefundInput{OrderID: o.ID, Amount: decimal.NewFromInt(100000), Reason: "one item returned"})
	require.NoError(t, err)
	assert.True(t, partial.IsRefund())

	// The remainder; a zero amount means everything still refundable.
	full, err := svc.Refund(ctx, RefundInput{OrderID: o.ID, Reason: "order cancelled"})
	require.NoError(t, err)
	assert.True(t, full.Amount.Equal(decimal.NewFromInt(230000)))

	names := rec.names()
	require.Len(t, names, 3)
	assert.Equal(t, "payment.refunded", names[1])
	assert.Equal(t, "payment.refunded", names[2])

	firstRefund := rec.events[1].(domain.PaymentRefundedEvent)
	lastRefund := rec.events[2].(domain.PaymentRefundedEvent)
	assert.False(t, firstRefund.Full)
	assert.True(t, lastRefund.Full)
}

func TestRefundNeverExceedsCaptured(t *testing.T) {
	svc, _, orders, _ := newStack(t)
	o := seedOrder(t, orders, domorder.PaymentVNPay)
	ctx := context.Background()
	_, err := svc.HandleCallback(ctx, signedCallback(o.ID, 330000, true))
	require.NoError(t, err)

	_, err = svc.Refund(ctx, RefundInput{OrderID: o.ID, Amount: decimal.NewFromInt(330001)})
	require.ErrorIs(t, err, domain.ErrRefundExceedsCaptured)

	_, err = svc.Refund(ctx, RefundInput{OrderID: o.ID, Amount: decimal.NewFromInt(200000)})
	require.NoError(t, err)
	_, err = svc.Refund(ctx, RefundInput{OrderID: o.ID, Amount: decimal.NewFromInt(200000)})
	require.ErrorIs(t, err, domain.ErrRefundExceedsCaptured)
}

func TestRefundNeedsACapture(t *testing.T) {
	svc, _, orders, _ := newStack(t)
	o := seedOrder(t, orders, domorder.PaymentVNPay)

	_, err := svc.Refund(context.Background(), RefundInput{OrderID: o.ID, Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, domain.ErrNothingCaptured)
}

func TestConcurrentRefundsCannotOverdraw(t *testing.T) {
	svc, txns, orders, _ := newStack(t)
	o := seedOrder(t, orders, domorder.PaymentVNPay)
	ctx := context.Background()
	_, err := svc.HandleCallback(ctx, signedCallback(o.ID, 330000, true))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Refund(ctx, RefundInput{OrderID: o.ID, Amount: decimal.NewFromInt(100000)})
		}()
	}
	wg.Wait()

	all, err := txns.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, domain.RefundedTotal(all).GreaterThan(domain.CapturedTotal(all)))
}
