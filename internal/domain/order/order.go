package order

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: already exists")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount          = errors.New("order: amount must be greater than zero")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrStockAlreadySettled    = errors.New("order: stock already settled")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipping   Status = "shipping"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentVNPay  PaymentMethod = "vnpay"
	PaymentMoMo   PaymentMethod = "momo"
	PaymentStripe PaymentMethod = "stripe"
)

// StockState tracks what the order holds against the inventory ledger.
// Reservations settle exactly once: committed when goods ship, released when
// the order is cancelled beforehand.
type StockState string

const (
	StockReserved  StockState = "reserved"
	StockCommitted StockState = "committed"
	StockReleased  StockState = "released"
)

// Item is an immutable snapshot of a cart line at checkout. Unit prices are
// never re-read from the catalog after the order exists.
type Item struct {
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type StatusChange struct {
	From       Status
	To         Status
	Reason     string
	OccurredAt time.Time
}

type Order struct {
	ID            string
	Number        string
	CustomerID    string
	Items         []Item
	Subtotal      decimal.Decimal
	ShippingFee   decimal.Decimal
	Total         decimal.Decimal
	Currency      string
	PaymentMethod PaymentMethod
	Status        Status
	StockState    StockState
	Paid          bool
	PaidTxnID     string
	ShippingAddr  string
	Note          string
	CancelReason  string
	History       []StatusChange
	TrackingCode  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PaidAt        time.Time
	ShippedAt     time.Time
	CompletedAt   time.Time
	CancelledAt   time.Time

	state OrderState
}

// New builds a pending order from checkout line snapshots.
func New(id, customerID string, items []Item, shippingFee decimal.Decimal, currency string, method PaymentMethod) (*Order, error) {
	if customerID == "" {
		return nil, errors.New("order: customer id is required")
	}
	if len(items) == 0 {
		return nil, errors.New("order: at least one item is required")
	}
	subtotal := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.UnitPrice.IsNegative() {
			return nil, ErrInvalidAmount
		}
		subtotal = subtotal.Add(it.Subtotal())
	}

	now := time.Now().UTC()
	o := &Order{
		ID:            id,
		Number:        NewOrderNumber(),
		CustomerID:    customerID,
		Items:         append([]Item(nil), items...),
		Subtotal:      subtotal,
		ShippingFee:   shippingFee,
		Total:         subtotal.Add(shippingFee),
		Currency:      currency,
		PaymentMethod: method,
		Status:        StatusPending,
		StockState:    StockReserved,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	o.History = append(o.History, StatusChange{From: "", To: StatusPending, Reason: "order created", OccurredAt: now})
	return o, nil
}

// NewOrderNumber returns a human-readable order number, YYMMDD-XXXXXX. The
// random suffix keeps order volume unguessable.
func NewOrderNumber() string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return time.Now().UTC().Format("060102") + "-" + strings.ToUpper(hex.EncodeToString(b[:]))
}

func (o *Order) IsCOD() bool { return o.PaymentMethod == PaymentCOD }

func (o *Order) CanCancel() bool {
	switch o.Status {
	case StatusPending, StatusProcessing, StatusShipping:
		return true
	}
	return false
}

// MarkPaid records a succeeded payment transaction and moves the order from
// Pending to Processing.
func (o *Order) MarkPaid(txnID string) error {
	if txnID == "" {
		return errors.New("order: transaction id is required")
	}
	next, err := o.currentState().Pay(o)
	if err != nil {
		return err
	}
	o.Paid = true
	o.PaidTxnID = txnID
	o.PaidAt = time.Now().UTC()
	o.transition(next, "payment "+txnID)
	return nil
}

// Confirm moves a COD order from Pending to Processing without a capture.
// Prepaid orders only advance through MarkPaid.
func (o *Order) Confirm() error {
	if !o.IsCOD() {
		return ErrInvalidStateTransition
	}
	next, err := o.currentState().Pay(o)
	if err != nil {
		return err
	}
	o.transition(next, "confirmed")
	return nil
}

// Ship moves a processing order out of the warehouse.
func (o *Order) Ship(trackingCode string) error {
	next, err := o.currentState().Ship(o)
	if err != nil {
		return err
	}
	o.TrackingCode = trackingCode
	o.ShippedAt = time.Now().UTC()
	o.transition(next, "shipped "+trackingCode)
	return nil
}

// Complete finishes delivery. COD orders collect payment at the door, so
// completion marks them paid.
func (o *Order) Complete() error {
	next, err := o.currentState().Complete(o)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if o.IsCOD() && !o.Paid {
		o.Paid = true
		o.PaidAt = now
	}
	o.CompletedAt = now
	o.transition(next, "delivered")
	return nil
}

func (o *Order) Cancel(reason string) error {
	next, err := o.currentState().Cancel(o)
	if err != nil {
		return err
	}
	o.CancelReason = reason
	o.CancelledAt = time.Now().UTC()
	o.transition(next, reason)
	return nil
}

// Refund marks the order fully refunded after reconciliation confirms the
// refund transactions.
func (o *Order) Refund() error {
	next, err := o.currentState().Refund(o)
	if err != nil {
		return err
	}
	o.transition(next, "refunded")
	return nil
}

// CommitStock marks the reservation permanently deducted. Settling twice is
// an error so replayed events stay no-ops.
func (o *Order) CommitStock() error {
	if o.StockState != StockReserved {
		return ErrStockAlreadySettled
	}
	o.StockState = StockCommitted
	o.touch()
	return nil
}

// ReleaseStock marks the reservation returned to the pool.
func (o *Order) ReleaseStock() error {
	if o.StockState != StockReserved {
		return ErrStockAlreadySettled
	}
	o.StockState = StockReleased
	o.touch()
	return nil
}

func (o *Order) currentState() OrderState {
	if o.state == nil || o.state.Status() != o.Status {
		o.state = stateFor(o.Status)
	}
	return o.state
}

func (o *Order) transition(next OrderState, reason string) {
	from := o.Status
	o.state = next
	o.Status = next.Status()
	o.History = append(o.History, StatusChange{
		From:       from,
		To:         o.Status,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
	o.touch()
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so repositories can hand out snapshots.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	clone.History = append([]StatusChange(nil), o.History...)
	clone.state = nil
	return &clone
}
