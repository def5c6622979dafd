package billing

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransactionValidation(t *testing.T) {
	_, err := NewTransaction("", GatewayVNPay, "ref", KindPayment, StatusSucceeded, decimal.NewFromInt(100), "VND")
	require.Error(t, err)

	_, err = NewTransaction("ord-1", GatewayVNPay, "", KindPayment, StatusSucceeded, decimal.NewFromInt(100), "VND")
	require.Error(t, err)

	_, err = NewTransaction("ord-1", GatewayVNPay, "ref", KindPayment, StatusSucceeded, decimal.Zero, "VND")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewTransaction("ord-1", GatewayVNPay, "ref", KindPayment, StatusSucceeded, decimal.NewFromInt(-5), "VND")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCaptureAndRefundPredicates(t *testing.T) {
	capture, err := NewTransaction("ord-1", GatewayVNPay, "ref-1", KindPayment, StatusSucceeded, decimal.NewFromInt(100), "VND")
	require.NoError(t, err)
	assert.True(t, capture.IsCapture())
	assert.False(t, capture.IsRefund())

	declined, err := NewTransaction("ord-1", GatewayVNPay, "ref-2", KindPayment, StatusFailed, decimal.NewFromInt(100), "VND")
	require.NoError(t, err)
	assert.False(t, declined.IsCapture(), "failed captures carry no money")

	refund, err := NewTransaction("ord-1", GatewayVNPay, "ref-3", KindRefund, StatusSucceeded, decimal.NewFromInt(40), "VND")
	require.NoError(t, err)
	assert.True(t, refund.IsRefund())
	assert.False(t, refund.IsCapture())
}

func TestTotals(t *testing.T) {
	mk := func(kind Kind, status Status, amount int64, ref string) *Transaction {
		txn, err := NewTransaction("ord-1", GatewayVNPay, ref, kind, status, decimal.NewFromInt(amount), "VND")
		require.NoError(t, err)
		return txn
	}
	txns := []*Transaction{
		mk(KindPayment, StatusSucceeded, 500, "r1"),
		mk(KindPayment, StatusFailed, 500, "r2"),
		mk(KindRefund, StatusSucceeded, 200, "r3"),
		mk(KindRefund, StatusSucceeded, 100, "r4"),
	}
	assert.True(t, CapturedTotal(txns).Equal(decimal.NewFromInt(500)))
	assert.True(t, RefundedTotal(txns).Equal(decimal.NewFromInt(300)))
}

func TestReferenceFormats(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^TXN\d{8}[0-9A-F]{8}$`), NewTransactionID())
	assert.Regexp(t, regexp.MustCompile(`^REF\d{8}[0-9A-F]{6}$`), NewRefundID())
}
