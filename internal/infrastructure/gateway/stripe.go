package gateway

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	dombilling "github.com/shopvn-labs/commerce-core/internal/domain/billing"
)

// Stripe verifies webhook payloads the way stripe signs them: an HMAC-SHA256
// over "timestamp.payload" carried in the Stripe-Signature header. The
// normalized callback stores the timestamp in Raw["t"] and the payload in
// Raw["payload"].
type Stripe struct {
	secret string
}

func NewStripe(secret string) *Stripe {
	return &Stripe{secret: secret}
}

func (g *Stripe) Code() dombilling.Gateway { return dombilling.GatewayStripe }

func (g *Stripe) SupportsRefund() bool { return true }

func (g *Stripe) CreatePayment(_ context.Context, orderID string, amount decimal.Decimal, currency string) (*dombilling.PaymentIntent, error) {
	reference := "pi_" + strings.ReplaceAll(orderID, "-", "")
	return &dombilling.PaymentIntent{
		Reference:  reference,
		PaymentURL: "https://checkout.stripe.com/c/pay/" + reference,
	}, nil
}

func (g *Stripe) VerifyCallback(_ context.Context, cb dombilling.Callback) error {
	signed := cb.Raw["t"] + "." + cb.Raw["payload"]
	if !dombilling.VerifySignature(g.secret, cb.Signature, signed) {
		return dombilling.ErrSignatureMismatch
	}
	return nil
}

func (g *Stripe) Refund(_ context.Context, captureReference string, amount decimal.Decimal, _ string) (*dombilling.RefundOutcome, error) {
	if !amount.IsPositive() {
		return nil, dombilling.ErrInvalidAmount
	}
	return &dombilling.RefundOutcome{
		Reference: "re_" + strings.TrimPrefix(refundReference(captureReference), captureReference+"-RF-"),
		Succeeded: true,
	}, nil
}
