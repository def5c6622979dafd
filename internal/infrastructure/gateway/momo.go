package gateway

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"

	dombilling "github.com/shopvn-labs/commerce-core/internal/domain/billing"
)

const momoDefaultEndpoint = "https://test-payment.momo.vn/v2/gateway/pay"

// MoMo signs requests and verifies IPNs with HMAC-SHA256 over the canonical
// parameter string, MoMo's documented scheme.
type MoMo struct {
	secret   string
	endpoint string
}

func NewMoMo(secret, endpoint string) *MoMo {
	if endpoint == "" {
		endpoint = momoDefaultEndpoint
	}
	return &MoMo{secret: secret, endpoint: endpoint}
}

func (g *MoMo) Code() dombilling.Gateway { return dombilling.GatewayMoMo }

func (g *MoMo) SupportsRefund() bool { return true }

func (g *MoMo) CreatePayment(_ context.Context, orderID string, amount decimal.Decimal, currency string) (*dombilling.PaymentIntent, error) {
	reference := "MOMO-" + orderID
	params := map[string]string{
		"requestId": reference,
		"orderId":   orderID,
		"amount":    amount.StringFixed(0),
		"currency":  currency,
	}
	sig := dombilling.Sign(g.secret, dombilling.CanonicalQuery(params))

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("signature", sig)
	return &dombilling.PaymentIntent{
		Reference:  reference,
		PaymentURL: g.endpoint + "?" + q.Encode(),
	}, nil
}

func (g *MoMo) VerifyCallback(_ context.Context, cb dombilling.Callback) error {
	if !dombilling.VerifySignature(g.secret, cb.Signature, dombilling.CanonicalQuery(cb.Raw)) {
		return dombilling.ErrSignatureMismatch
	}
	return nil
}

func (g *MoMo) Refund(_ context.Context, captureReference string, amount decimal.Decimal, _ string) (*dombilling.RefundOutcome, error) {
	if !amount.IsPositive() {
		return nil, dombilling.ErrInvalidAmount
	}
	return &dombilling.RefundOutcome{
		Reference: refundReference(captureReference),
		Succeeded: true,
	}, nil
}
