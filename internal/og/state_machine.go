package og

// OrderState tracks the lifecycle of an order.
type OrderState uint16

const (
	OrderStateUnknown OrderState = iota
	OrderStateNew
	OrderStateSubmitted
	OrderStateAcked
	OrderStatePartFilled
	OrderStateFilled
	OrderStateCanceled
	OrderStateRejected
)

// String returns a short label for logs and metrics.
func (s OrderState) String() string {
	switch s {
	case OrderStateNew:
		return "new"
	case OrderStateSubmitted:
		return "submitted"
	case OrderStateAcked:
		return "acked"
	case OrderStatePartFilled:
		return "part_filled"
	case OrderStateFilled:
		return "filled"
	case OrderStateCanceled:
		return "canceled"
	case OrderStateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is legal.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCanceled, OrderStateRejected:
		return true
	default:
		return false
	}
}

// canAck reports whether an exchange acknowledgment may be applied.
func (s OrderState) canAck() bool {
	return s == OrderStateSubmitted
}

// canFill reports whether a fill may be applied.
func (s OrderState) canFill() bool {
	switch s {
	case OrderStateAcked, OrderStatePartFilled:
		return true
	default:
		return false
	}
}
