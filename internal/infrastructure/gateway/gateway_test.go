package gateway

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dombilling "github.com/shopvn-labs/commerce-core/internal/domain/billing"
)

func TestVNPayCreatePaymentIsVerifiable(t *testing.T) {
	g := NewVNPay("secret", "")
	intent, err := g.CreatePayment(context.Background(), "ord-1", decimal.NewFromInt(330000), "VND")
	require.NoError(t, err)
	assert.Equal(t, "VNP-ord-1", intent.Reference)
	assert.Contains(t, intent.PaymentURL, "vnp_SecureHash=")
	assert.Contains(t, intent.PaymentURL, "vnp_Amount=33000000", "vnpay amounts are in hundredths")
}

func TestVNPayVerifyCallback(t *testing.T) {
	g := NewVNPay("secret", "")
	raw := map[string]string{
		"vnp_TxnRef":  "VNP-ord-1",
		"vnp_Amount":  "33000000",
		"vnp_OrderId": "ord-1",
	}
	cb := dombilling.Callback{
		Gateway:   dombilling.GatewayVNPay,
		Raw:       raw,
		Signature: dombilling.Sign("secret", dombilling.CanonicalQuery(raw)),
	}
	require.NoError(t, g.VerifyCallback(context.Background(), cb))

	cb.Raw["vnp_Amount"] = "1"
	require.ErrorIs(t, g.VerifyCallback(context.Background(), cb), dombilling.ErrSignatureMismatch)
}

func TestMoMoVerifyCallback(t *testing.T) {
	g := NewMoMo("secret", "")
	raw := map[string]string{"orderId": "ord-1", "amount": "330000"}
	cb := dombilling.Callback{
		Gateway:   dombilling.GatewayMoMo,
		Raw:       raw,
		Signature: dombilling.Sign("secret", dombilling.CanonicalQuery(raw)),
	}
	require.NoError(t, g.VerifyCallback(context.Background(), cb))

	cb.Signature = "bogus"
	require.ErrorIs(t, g.VerifyCallback(context.Background(), cb), dombilling.ErrSignatureMismatch)
}

func TestStripeVerifyCallback(t *testing.T) {
	g := NewStripe("whsec")
	raw := map[string]string{"t": "1700000000", "payload": `{"id":"evt_1"}`}
	cb := dombilling.Callback{
		Gateway:   dombilling.GatewayStripe,
		Raw:       raw,
		Signature: dombilling.Sign("whsec", raw["t"]+"."+raw["payload"]),
	}
	require.NoError(t, g.VerifyCallback(context.Background(), cb))

	tampered := cb
	tampered.Raw = map[string]string{"t": "1700000000", "payload": `{"id":"evt_2"}`}
	require.ErrorIs(t, g.VerifyCallback(context.Background(), tampered), dombilling.ErrSignatureMismatch)
}

func TestRefundReferencesAreUnique(t *testing.T) {
	g := NewVNPay("secret", "")
	a, err := g.Refund(context.Background(), "VNP-ord-1", decimal.NewFromInt(100), "")
	require.NoError(t, err)
	b, err := g.Refund(context.Background(), "VNP-ord-1", decimal.NewFromInt(100), "")
	require.NoError(t, err)
	assert.NotEqual(t, a.Reference, b.Reference)
}

func TestCODRejectsGatewayOperations(t *testing.T) {
	g := NewCOD()
	assert.False(t, g.SupportsRefund())
	_, err := g.CreatePayment(context.Background(), "ord-1", decimal.NewFromInt(1), "VND")
	require.Error(t, err)
}
