package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Callback is the normalized shape of a gateway notification (IPN, webhook,
// or return redirect). Raw carries the gateway's original key/value payload
// for signature verification.
type Callback struct {
	Gateway   Gateway
	OrderID   string
	Reference string
	Amount    decimal.Decimal
	Currency  string
	Success   bool
	FailCode  string
	Signature string
	Raw       map[string]string
}

// PaymentIntent is what a gateway returns when a payment is initiated.
type PaymentIntent struct {
	Reference  string
	PaymentURL string
}

// RefundOutcome reports the gateway-side result of a refund request.
type RefundOutcome struct {
	Reference string
	Succeeded bool
	FailCode  string
}

// GatewayAdapter is the port every payment provider implements. Adapters only
// talk to their provider; recording transactions and driving order state is
// reconciliation's job.
type GatewayAdapter interface {
	Code() Gateway
	SupportsRefund() bool
	CreatePayment(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*PaymentIntent, error)
	// VerifyCallback authenticates a notification; ErrSignatureMismatch when
	// the payload was not signed by the provider.
	VerifyCallback(ctx context.Context, cb Callback) error
	Refund(ctx context.Context, captureReference string, amount decimal.Decimal, reason string) (*RefundOutcome, error)
}
