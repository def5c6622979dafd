package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	dombilling "github.com/shopvn-labs/commerce-core/internal/domain/billing"
)

var errCODHasNoGateway = errors.New("gateway: cash on delivery has no payment page")

// COD is the null adapter for cash on delivery. Money changes hands at the
// door, so there is nothing to initiate and nothing to verify; refunds are
// handled outside the gateway rail.
type COD struct{}

func NewCOD() *COD { return &COD{} }

func (COD) Code() dombilling.Gateway { return dombilling.GatewayCOD }

func (COD) SupportsRefund() bool { return false }

func (COD) CreatePayment(context.Context, string, decimal.Decimal, string) (*dombilling.PaymentIntent, error) {
	return nil, errCODHasNoGateway
}

func (COD) VerifyCallback(context.Context, dombilling.Callback) error {
	return errCODHasNoGateway
}

func (COD) Refund(context.Context, string, decimal.Decimal, string) (*dombilling.RefundOutcome, error) {
	return nil, errCODHasNoGateway
}
