package adapter

import (
	"context"

	"main/internal/schema"
)

// SubmitRequest carries an order to a venue execution adapter.
type SubmitRequest struct {
	OrderID     uint64
	Symbol      schema.Symbol
	Side        schema.OrderSide
	Type        schema.OrderType
	TimeInForce schema.TimeInForce
	Price       schema.Price
	Qty         schema.Quantity
}

// CancelRequest asks a venue to cancel a previously submitted order.
type CancelRequest struct {
	OrderID         uint64
	ExchangeOrderID string
	Symbol          schema.Symbol
}

// Events receives the asynchronous venue event stream: acknowledgments and
// fills. The order manager is the only consumer.
type Events interface {
	OnAck(ack schema.OrderAck)
	OnFill(fill schema.Fill)
}

// Execution is the boundary to one venue's order entry. Submit and Cancel
// are dispatch-only; outcomes arrive on the Events stream. Both calls must
// respect the context deadline set by the caller.
type Execution interface {
	Submit(ctx context.Context, req SubmitRequest) error
	Cancel(ctx context.Context, req CancelRequest) error
}
