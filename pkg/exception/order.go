package exception

import "errors"

var (
	ErrDuplicateOrder     = errors.New("order: order already exists")
	ErrUnknownOrder       = errors.New("order: order not found")
	ErrIllegalTransition  = errors.New("order: illegal state transition")
	ErrInvalidFill        = errors.New("order: invalid fill quantity")
	ErrOrderInvalidIntent = errors.New("order: invalid intent")
	ErrOrderRiskDenied    = errors.New("order: denied by risk engine")
)

var (
	ErrAdapterTimeout  = errors.New("adapter: request timed out")
	ErrAdapterRejected = errors.New("adapter: request rejected")
)
