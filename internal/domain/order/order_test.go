package order

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(t *testing.T, method PaymentMethod) *Order {
	t.Helper()
	items := []Item{
		{SKU: "SKU-1", Quantity: 2, UnitPrice: decimal.NewFromInt(150000)},
		{SKU: "SKU-2", Quantity: 1, UnitPrice: decimal.NewFromInt(99000)},
	}
	o, err := New("ord-1", "cust-1", items, decimal.NewFromInt(30000), "VND", method)
	require.NoError(t, err)
	return o
}

func TestNewComputesTotals(t *testing.T) {
	o := newOrder(t, PaymentVNPay)
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(399000)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(429000)))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, StockReserved, o.StockState)
	assert.Len(t, o.History, 1)
}

func TestNewValidation(t *testing.T) {
	_, err := New("ord-1", "", nil, decimal.Zero, "VND", PaymentCOD)
	require.Error(t, err)

	_, err = New("ord-1", "cust-1", nil, decimal.Zero, "VND", PaymentCOD)
	require.Error(t, err)

	_, err = New("ord-1", "cust-1", []Item{{SKU: "S", Quantity: 0}}, decimal.Zero, "VND", PaymentCOD)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestOrderNumberFormat(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}-[0-9A-F]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := NewOrderNumber()
		assert.Regexp(t, re, n)
		assert.False(t, seen[n], "order numbers must not repeat")
		seen[n] = true
	}
}

func TestHappyPathPrepaid(t *testing.T) {
	o := newOrder(t, PaymentVNPay)

	require.NoError(t, o.MarkPaid("TXN1"))
	assert.Equal(t, StatusProcessing, o.Status)
	assert.True(t, o.Paid)

	require.NoError(t, o.Ship("GHN-123"))
	assert.Equal(t, StatusShipping, o.Status)
	assert.Equal(t, "GHN-123", o.TrackingCode)

	require.NoError(t, o.Complete())
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Len(t, o.History, 4)
}

func TestCODCompletionMarksPaid(t *testing.T) {
	o := newOrder(t, PaymentCOD)

	require.NoError(t, o.Confirm())
	assert.Equal(t, StatusProcessing, o.Status)
	assert.False(t, o.Paid, "confirmation is not payment")

	require.NoError(t, o.Ship("GHTK-9"))
	require.NoError(t, o.Complete())
	assert.True(t, o.Paid, "delivery collects the cash")
}

func TestConfirmRejectsPrepaid(t *testing.T) {
	o := newOrder(t, PaymentVNPay)
	require.ErrorIs(t, o.Confirm(), ErrInvalidStateTransition)
}

func TestIllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		run  func(o *Order) error
	}{
		{name: "ship before payment", run: func(o *Order) error { return o.Ship("x") }},
		{name: "complete before shipping", run: func(o *Order) error { return o.Complete() }},
		{name: "double pay", run: func(o *Order) error {
			if err := o.MarkPaid("TXN1"); err != nil {
				return err
			}
			return o.MarkPaid("TXN2")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrder(t, PaymentVNPay)
			require.ErrorIs(t, tt.run(o), ErrInvalidStateTransition)
		})
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	o := newOrder(t, PaymentVNPay)
	require.NoError(t, o.MarkPaid("TXN1"))
	require.NoError(t, o.Ship("x"))
	require.NoError(t, o.Complete())

	assert.ErrorIs(t, o.Cancel("too late"), ErrInvalidStateTransition)
	assert.ErrorIs(t, o.Refund(), ErrInvalidStateTransition)
	assert.ErrorIs(t, o.Ship("y"), ErrInvalidStateTransition)
}

func TestCancelFromEveryLegalState(t *testing.T) {
	setups := map[string]func(o *Order){
		"pending":    func(*Order) {},
		"processing": func(o *Order) { _ = o.MarkPaid("TXN1") },
		"shipping": func(o *Order) {
			_ = o.MarkPaid("TXN1")
			_ = o.Ship("x")
		},
	}
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			o := newOrder(t, PaymentVNPay)
			setup(o)
			require.NoError(t, o.Cancel("changed my mind"))
			assert.Equal(t, StatusCancelled, o.Status)
			assert.Equal(t, "changed my mind", o.CancelReason)
		})
	}
}

func TestRefundAfterCancel(t *testing.T) {
	o := newOrder(t, PaymentVNPay)
	require.NoError(t, o.MarkPaid("TXN1"))
	require.NoError(t, o.Cancel("out of stock"))

	require.NoError(t, o.Refund())
	assert.Equal(t, StatusRefunded, o.Status)

	assert.ErrorIs(t, o.Refund(), ErrInvalidStateTransition)
}

func TestStockSettlesExactlyOnce(t *testing.T) {
	o := newOrder(t, PaymentVNPay)

	require.NoError(t, o.CommitStock())
	assert.Equal(t, StockCommitted, o.StockState)
	assert.ErrorIs(t, o.CommitStock(), ErrStockAlreadySettled)
	assert.ErrorIs(t, o.ReleaseStock(), ErrStockAlreadySettled)

	o2 := newOrder(t, PaymentVNPay)
	require.NoError(t, o2.ReleaseStock())
	assert.ErrorIs(t, o2.ReleaseStock(), ErrStockAlreadySettled)
}
