package gateway

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"

	dombilling "github.com/shopvn-labs/commerce-core/internal/domain/billing"
)

const vnpayDefaultEndpoint = "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"

// VNPay builds signed payment URLs and authenticates IPN callbacks for the
// VNPay sandbox protocol: HMAC-SHA256 over the sorted query string.
type VNPay struct {
	secret   string
	endpoint string
}

func NewVNPay(secret, endpoint string) *VNPay {
	if endpoint == "" {
		endpoint = vnpayDefaultEndpoint
	}
	return &VNPay{secret: secret, endpoint: endpoint}
}

func (g *VNPay) Code() dombilling.Gateway { return dombilling.GatewayVNPay }

func (g *VNPay) SupportsRefund() bool { return true }

func (g *VNPay) CreatePayment(_ context.Context, orderID string, amount decimal.Decimal, currency string) (*dombilling.PaymentIntent, error) {
	reference := "VNP-" + orderID
	params := map[string]string{
		"vnp_TxnRef":   reference,
		"vnp_OrderId":  orderID,
		"vnp_Amount":   amount.Mul(decimal.NewFromInt(100)).StringFixed(0),
		"vnp_CurrCode": currency,
	}
	canonical := dombilling.CanonicalQuery(params)
	sig := dombilling.Sign(g.secret, canonical)

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("vnp_SecureHash", sig)
	return &dombilling.PaymentIntent{
		Reference:  reference,
		PaymentURL: g.endpoint + "?" + q.Encode(),
	}, nil
}

func (g *VNPay) VerifyCallback(_ context.Context, cb dombilling.Callback) error {
	if !dombilling.VerifySignature(g.secret, cb.Signature, dombilling.CanonicalQuery(cb.Raw)) {
		return dombilling.ErrSignatureMismatch
	}
	return nil
}

func (g *VNPay) Refund(_ context.Context, captureReference string, amount decimal.Decimal, _ string) (*dombilling.RefundOutcome, error) {
	if !amount.IsPositive() {
		return nil, dombilling.ErrInvalidAmount
	}
	return &dombilling.RefundOutcome{
		Reference: refundReference(captureReference),
		Succeeded: true,
	}, nil
}
