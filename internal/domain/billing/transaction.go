package billing

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound              = errors.New("billing: transaction not found")
	ErrDuplicateCallback     = errors.New("billing: callback already recorded")
	ErrInvalidAmount         = errors.New("billing: amount must be greater than zero")
	ErrRefundExceedsCaptured = errors.New("billing: refund exceeds captured amount")
	ErrUnknownGateway        = errors.New("billing: unknown gateway")
	ErrSignatureMismatch     = errors.New("billing: signature verification failed")
	ErrNothingCaptured       = errors.New("billing: no captured payment for order")
)

type Gateway string

const (
	GatewayCOD    Gateway = "cod"
	GatewayVNPay  Gateway = "vnpay"
	GatewayMoMo   Gateway = "momo"
	GatewayStripe Gateway = "stripe"
)

type Kind string

const (
	KindPayment Kind = "payment"
	KindRefund  Kind = "refund"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Transaction is one append-only row in the money audit trail. A record is
// never mutated after insert; corrections and refunds are new records.
type Transaction struct {
	ID         string
	OrderID    string
	Gateway    Gateway
	Reference  string // gateway-side identifier, unique per gateway
	Kind       Kind
	Status     Status
	Amount     decimal.Decimal
	Currency   string
	FailCode   string
	FailReason string
	RecordedAt time.Time
}

func NewTransaction(orderID string, gw Gateway, reference string, kind Kind, status Status, amount decimal.Decimal, currency string) (*Transaction, error) {
	if orderID == "" {
		return nil, errors.New("billing: order id is required")
	}
	if reference == "" {
		return nil, errors.New("billing: gateway reference is required")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return &Transaction{
		ID:         NewTransactionID(),
		OrderID:    orderID,
		Gateway:    gw,
		Reference:  reference,
		Kind:       kind,
		Status:     status,
		Amount:     amount,
		Currency:   currency,
		RecordedAt: time.Now().UTC(),
	}, nil
}

func (t *Transaction) IsCapture() bool {
	return t.Kind == KindPayment && t.Status == StatusSucceeded
}

func (t *Transaction) IsRefund() bool {
	return t.Kind == KindRefund && t.Status == StatusSucceeded
}

// NewTransactionID returns TXN + unix-stamp tail + random hex, mirroring the
// references human operators pivot on.
func NewTransactionID() string {
	return newReference("TXN", 4)
}

// NewRefundID returns a REF-prefixed identifier for refund transactions.
func NewRefundID() string {
	return newReference("REF", 3)
}

func newReference(prefix string, randomBytes int) string {
	stamp := strconv.FormatInt(time.Now().Unix(), 10)
	if len(stamp) > 8 {
		stamp = stamp[len(stamp)-8:]
	}
	b := make([]byte, randomBytes)
	_, _ = rand.Read(b)
	return prefix + stamp + strings.ToUpper(hex.EncodeToString(b))
}
