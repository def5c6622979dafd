package inventory

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("inventory: sku not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrOverRelease       = errors.New("inventory: release exceeds reservation")
	ErrOverCommit        = errors.New("inventory: commit exceeds reservation")
	ErrLedgerCorrupt     = errors.New("inventory: ledger corrupt, sku halted")
)

// StockStatus summarises availability for display and alerting.
type StockStatus string

const (
	StatusInStock    StockStatus = "in_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusOutOfStock StockStatus = "out_of_stock"
)

// StockItem is the per-SKU ledger row. Quantity is on-hand stock, Reserved the
// portion held for pending orders. The ledger invariant is
// 0 <= Reserved <= Quantity; a violation halts the SKU permanently.
type StockItem struct {
	SKU               string
	Warehouse         string
	Quantity          int
	Reserved          int
	LowStockThreshold int
	Halted            bool
	LastRestockedAt   time.Time
	LastSoldAt        time.Time
	UpdatedAt         time.Time
}

func NewStockItem(sku, warehouse string, quantity, lowStockThreshold int) (*StockItem, error) {
	if sku == "" {
		return nil, errors.New("inventory: sku is required")
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &StockItem{
		SKU:               sku,
		Warehouse:         warehouse,
		Quantity:          quantity,
		LowStockThreshold: lowStockThreshold,
		UpdatedAt:         time.Now().UTC(),
	}, nil
}

// Available is the quantity still open for new reservations.
func (s *StockItem) Available() int {
	return s.Quantity - s.Reserved
}

func (s *StockItem) Status() StockStatus {
	switch {
	case s.Available() <= 0:
		return StatusOutOfStock
	case s.Available() <= s.LowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// guard refuses any mutation on a halted or corrupted SKU. Detecting
// Reserved > Quantity marks the row halted so no further writes can widen the
// damage; recovery is a manual adjustment.
func (s *StockItem) guard() error {
	if s.Halted {
		return ErrLedgerCorrupt
	}
	if s.Reserved > s.Quantity || s.Reserved < 0 {
		s.Halted = true
		return ErrLedgerCorrupt
	}
	return nil
}

// Reserve holds qty units for a pending order.
func (s *StockItem) Reserve(qty int, reference string) (*Movement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := s.guard(); err != nil {
		return nil, err
	}
	if s.Available() < qty {
		return nil, ErrInsufficientStock
	}
	s.Reserved += qty
	s.touch()
	return s.movement(MovementReserve, ReasonReservation, -qty, reference), nil
}

// Release returns qty reserved units to the open pool.
func (s *StockItem) Release(qty int, reference string) (*Movement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := s.guard(); err != nil {
		return nil, err
	}
	if qty > s.Reserved {
		return nil, ErrOverRelease
	}
	s.Reserved -= qty
	s.touch()
	return s.movement(MovementRelease, ReasonRelease, qty, reference), nil
}

// Commit converts a reservation into a permanent on-hand decrement.
func (s *StockItem) Commit(qty int, reference string) (*Movement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := s.guard(); err != nil {
		return nil, err
	}
	if qty > s.Reserved {
		return nil, ErrOverCommit
	}
	before := s.Quantity
	s.Reserved -= qty
	s.Quantity -= qty
	s.LastSoldAt = time.Now().UTC()
	s.touch()
	m := s.movement(MovementOut, ReasonSale, -qty, reference)
	m.QuantityBefore = before
	m.QuantityAfter = s.Quantity
	return m, nil
}

// AddStock receives qty units into the warehouse.
func (s *StockItem) AddStock(qty int, reference string) (*Movement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := s.guard(); err != nil {
		return nil, err
	}
	before := s.Quantity
	s.Quantity += qty
	s.LastRestockedAt = time.Now().UTC()
	s.touch()
	m := s.movement(MovementIn, ReasonPurchase, qty, reference)
	m.QuantityBefore = before
	m.QuantityAfter = s.Quantity
	return m, nil
}

// AdjustStock sets on-hand quantity to an absolute value, e.g. after a count.
// Adjustment is also the only way to un-halt a corrupted SKU.
func (s *StockItem) AdjustStock(newQuantity int, reference string) (*Movement, error) {
	if newQuantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if newQuantity < s.Reserved {
		return nil, ErrInsufficientStock
	}
	before := s.Quantity
	s.Quantity = newQuantity
	s.Halted = false
	s.touch()
	m := s.movement(MovementAdjustment, ReasonAdjustment, newQuantity-before, reference)
	m.QuantityBefore = before
	m.QuantityAfter = s.Quantity
	return m, nil
}

// ProcessReturn puts returned goods back on hand.
func (s *StockItem) ProcessReturn(qty int, reference string) (*Movement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := s.guard(); err != nil {
		return nil, err
	}
	before := s.Quantity
	s.Quantity += qty
	s.touch()
	m := s.movement(MovementIn, ReasonReturn, qty, reference)
	m.QuantityBefore = before
	m.QuantityAfter = s.Quantity
	return m, nil
}

func (s *StockItem) movement(mt MovementType, reason MovementReason, change int, reference string) *Movement {
	return &Movement{
		SKU:        s.SKU,
		Warehouse:  s.Warehouse,
		Type:       mt,
		Reason:     reason,
		Change:     change,
		Reference:  reference,
		OccurredAt: time.Now().UTC(),
	}
}

func (s *StockItem) touch() {
	s.UpdatedAt = time.Now().UTC()
}
