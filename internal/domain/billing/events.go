package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCapturedEvent is emitted once per successful capture; the order
// worker moves the owning order to processing on it.
type PaymentCapturedEvent struct {
	OrderID       string
	TransactionID string
	Gateway       Gateway
	Amount        decimal.Decimal
	Currency      string
	OccurredAt    time.Time
}

func (PaymentCapturedEvent) EventName() string { return "payment.captured" }

func NewPaymentCapturedEvent(t *Transaction) PaymentCapturedEvent {
	return PaymentCapturedEvent{
		OrderID:       t.OrderID,
		TransactionID: t.ID,
		Gateway:       t.Gateway,
		Amount:        t.Amount,
		Currency:      t.Currency,
		OccurredAt:    time.Now().UTC(),
	}
}

// PaymentFailedEvent is emitted when a capture attempt is declined.
type PaymentFailedEvent struct {
	OrderID       string
	TransactionID string
	Gateway       Gateway
	FailCode      string
	OccurredAt    time.Time
}

func (PaymentFailedEvent) EventName() string { return "payment.failed" }

func NewPaymentFailedEvent(t *Transaction) PaymentFailedEvent {
	return PaymentFailedEvent{
		OrderID:       t.OrderID,
		TransactionID: t.ID,
		Gateway:       t.Gateway,
		FailCode:      t.FailCode,
		OccurredAt:    time.Now().UTC(),
	}
}

// PaymentRefundedEvent is emitted per successful refund transaction. Full is
// true when cumulative refunds now equal the captured total.
type PaymentRefundedEvent struct {
	OrderID       string
	TransactionID string
	Gateway       Gateway
	Amount        decimal.Decimal
	Full          bool
	OccurredAt    time.Time
}

func (PaymentRefundedEvent) EventName() string { return "payment.refunded" }

func NewPaymentRefundedEvent(t *Transaction, full bool) PaymentRefundedEvent {
	return PaymentRefundedEvent{
		OrderID:       t.OrderID,
		TransactionID: t.ID,
		Gateway:       t.Gateway,
		Amount:        t.Amount,
		Full:          full,
		OccurredAt:    time.Now().UTC(),
	}
}
