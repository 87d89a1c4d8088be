package store

import (
	"context"

	"main/internal/og"
)

// OrderSink adapts the store to the order table forwarder.
type OrderSink struct {
	s *Store
}

// OrderSink returns the row sink for the persistent order table.
func (s *Store) OrderSink() *OrderSink {
	return &OrderSink{s: s}
}

// UpsertRow implements RowSink.
func (o *OrderSink) UpsertRow(ctx context.Context, row og.OrderRow) error {
	return o.s.SaveOrder(ctx, OrderRecord{
		ID:              row.ID,
		ExchangeOrderID: row.ExchangeOrderID,
		Account:         uint32(row.Account),
		Symbol:          uint32(row.Symbol),
		Side:            uint16(row.Side),
		Type:            uint16(row.Type),
		TimeInForce:     uint16(row.TimeInForce),
		Price:           int64(row.Price),
		Qty:             int64(row.Qty),
		FilledQty:       int64(row.FilledQty),
		AvgFillPrice:    int64(row.AvgFillPrice),
		State:           uint16(row.State),
		Reason:          row.Reason,
		TsSubmit:        row.TsSubmit,
		TsUpdate:        row.TsUpdate,
	})
}

// DeleteRow implements RowSink. Archival of the hot row keeps the durable
// record; only an explicit purge deletes it.
func (o *OrderSink) DeleteRow(ctx context.Context, id uint64) error {
	return nil
}

// NewOrderForwarder builds the forwarder feeding the order sink.
func NewOrderForwarder(s *Store, capacity int) *RowForwarder[uint64, og.OrderRow] {
	return NewRowForwarder[uint64, og.OrderRow]("orders", s.OrderSink(), capacity)
}
