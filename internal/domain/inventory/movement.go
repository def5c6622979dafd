package inventory

import "time"

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementReserve    MovementType = "reserve"
	MovementRelease    MovementType = "release"
	MovementAdjustment MovementType = "adjustment"
)

type MovementReason string

const (
	ReasonPurchase    MovementReason = "purchase"
	ReasonSale        MovementReason = "sale"
	ReasonReturn      MovementReason = "return"
	ReasonAdjustment  MovementReason = "adjustment"
	ReasonReservation MovementReason = "reservation"
	ReasonRelease     MovementReason = "release"
)

// Movement is one append-only ledger entry. Change is positive for stock
// coming in, negative for stock going out or being held.
type Movement struct {
	SKU            string
	Warehouse      string
	Type           MovementType
	Reason         MovementReason
	Change         int
	QuantityBefore int
	QuantityAfter  int
	Reference      string
	OccurredAt     time.Time
}
