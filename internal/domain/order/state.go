package order

// OrderState implements the state pattern for order lifecycle transitions.
// Each state type answers every transition; illegal ones return
// ErrInvalidStateTransition.
type OrderState interface {
	Status() Status
	Pay(o *Order) (OrderState, error)
	Ship(o *Order) (OrderState, error)
	Complete(o *Order) (OrderState, error)
	Cancel(o *Order) (OrderState, error)
	Refund(o *Order) (OrderState, error)
}

func stateFor(s Status) OrderState {
	switch s {
	case StatusPending:
		return pendingState{}
	case StatusProcessing:
		return processingState{}
	case StatusShipping:
		return shippingState{}
	case StatusCompleted:
		return completedState{}
	case StatusCancelled:
		return cancelledState{}
	case StatusRefunded:
		return refundedState{}
	default:
		return pendingState{}
	}
}

type pendingState struct{}

func (pendingState) Status() Status { return StatusPending }

func (pendingState) Pay(*Order) (OrderState, error) { return processingState{}, nil }

func (pendingState) Ship(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (pendingState) Complete(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (pendingState) Cancel(*Order) (OrderState, error) { return cancelledState{}, nil }

func (pendingState) Refund(*Order) (OrderState, error) { return refundedState{}, nil }

type processingState struct{}

func (processingState) Status() Status { return StatusProcessing }

func (processingState) Pay(*Order) (OrderState, error) {
	// Already paid; a second capture must not move the order.
	return nil, ErrInvalidStateTransition
}

func (processingState) Ship(*Order) (OrderState, error) { return shippingState{}, nil }

func (processingState) Complete(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (processingState) Cancel(*Order) (OrderState, error) { return cancelledState{}, nil }

func (processingState) Refund(*Order) (OrderState, error) { return refundedState{}, nil }

type shippingState struct{}

func (shippingState) Status() Status { return StatusShipping }

func (shippingState) Pay(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (shippingState) Ship(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (shippingState) Complete(*Order) (OrderState, error) { return completedState{}, nil }

func (shippingState) Cancel(*Order) (OrderState, error) { return cancelledState{}, nil }

func (shippingState) Refund(*Order) (OrderState, error) { return refundedState{}, nil }

type completedState struct{}

func (completedState) Status() Status { return StatusCompleted }

func (completedState) Pay(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (completedState) Ship(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (completedState) Complete(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (completedState) Cancel(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (completedState) Refund(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

type cancelledState struct{}

func (cancelledState) Status() Status { return StatusCancelled }

func (cancelledState) Pay(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (cancelledState) Ship(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (cancelledState) Complete(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (cancelledState) Cancel(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (cancelledState) Refund(*Order) (OrderState, error) {
	// A cancelled prepaid order still needs its money returned.
	return refundedState{}, nil
}

type refundedState struct{}

func (refundedState) Status() Status { return StatusRefunded }

func (refundedState) Pay(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (refundedState) Ship(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (refundedState) Complete(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (refundedState) Cancel(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (refundedState) Refund(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}
