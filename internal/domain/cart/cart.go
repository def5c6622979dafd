package cart

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("cart: not found")
	ErrLineNotFound    = errors.New("cart: line not found")
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
	ErrNoOwner         = errors.New("cart: customer id or guest token required")
	ErrExpired         = errors.New("cart: guest cart expired")
	ErrEmpty           = errors.New("cart: no items")
)

// Line is one SKU position in a cart. UnitPrice is captured when the line is
// added; a cart always holds a ledger reservation equal to Quantity.
type Line struct {
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
	AddedAt   time.Time
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart belongs to either an authenticated customer or a guest session, never
// both. Lines keep insertion order.
type Cart struct {
	ID         string
	CustomerID string
	GuestToken string
	Lines      []Line
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New(id, customerID, guestToken string, guestTTL time.Duration) (*Cart, error) {
	if customerID == "" && guestToken == "" {
		return nil, ErrNoOwner
	}
	now := time.Now().UTC()
	c := &Cart{
		ID:         id,
		CustomerID: customerID,
		GuestToken: guestToken,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if customerID == "" {
		c.ExpiresAt = now.Add(guestTTL)
	}
	return c, nil
}

func (c *Cart) IsGuest() bool { return c.CustomerID == "" }

func (c *Cart) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().UTC().After(c.ExpiresAt)
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) TotalItems() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Line returns the line for a SKU, or nil.
func (c *Cart) Line(sku string) *Line {
	for i := range c.Lines {
		if c.Lines[i].SKU == sku {
			return &c.Lines[i]
		}
	}
	return nil
}

// AddLine appends qty of a SKU, merging into an existing line for the same SKU.
func (c *Cart) AddLine(sku string, qty int, unitPrice decimal.Decimal) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if l := c.Line(sku); l != nil {
		l.Quantity += qty
		l.UnitPrice = unitPrice
	} else {
		c.Lines = append(c.Lines, Line{
			SKU:       sku,
			Quantity:  qty,
			UnitPrice: unitPrice,
			AddedAt:   time.Now().UTC(),
		})
	}
	c.touch()
	return nil
}

// SetLineQuantity replaces the quantity of an existing line. Zero removes it.
func (c *Cart) SetLineQuantity(sku string, qty int) (previous int, err error) {
	l := c.Line(sku)
	if l == nil {
		return 0, ErrLineNotFound
	}
	previous = l.Quantity
	if qty < 0 {
		return previous, ErrInvalidQuantity
	}
	if qty == 0 {
		c.removeLine(sku)
	} else {
		l.Quantity = qty
	}
	c.touch()
	return previous, nil
}

// RemoveLine drops a SKU from the cart, reporting the released quantity.
func (c *Cart) RemoveLine(sku string) (int, error) {
	l := c.Line(sku)
	if l == nil {
		return 0, ErrLineNotFound
	}
	qty := l.Quantity
	c.removeLine(sku)
	c.touch()
	return qty, nil
}

// Drain empties the cart and returns the removed lines.
func (c *Cart) Drain() []Line {
	lines := c.Lines
	c.Lines = nil
	c.touch()
	return lines
}

func (c *Cart) removeLine(sku string) {
	for i := range c.Lines {
		if c.Lines[i].SKU == sku {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so repositories can hand out snapshots.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Lines = append([]Line(nil), c.Lines...)
	return &clone
}
