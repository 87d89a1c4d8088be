package store

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"main/internal/og"
	"main/internal/schema"
)

// TradeWriter persists one trade record per applied fill, off the hot
// path. Record never blocks; a full queue drops the trade and counts it.
type TradeWriter struct {
	s      *Store
	ch     chan TradeRecord
	closed uint32
	drops  uint64
}

// NewTradeWriter creates a trade writer with the given queue capacity.
func NewTradeWriter(s *Store, capacity int) *TradeWriter {
	if capacity <= 0 {
		capacity = 1024
	}
	return &TradeWriter{s: s, ch: make(chan TradeRecord, capacity)}
}

// Record enqueues the trade produced by a fill against an order row.
func (w *TradeWriter) Record(fill schema.Fill, row og.OrderRow) {
	if atomic.LoadUint32(&w.closed) != 0 {
		atomic.AddUint64(&w.drops, 1)
		return
	}
	rec := TradeRecord{
		ID:      uuid.NewString(),
		OrderID: fill.OrderID,
		Account: uint32(row.Account),
		Symbol:  uint32(row.Symbol),
		Side:    uint16(row.Side),
		Qty:     int64(fill.Qty),
		Price:   int64(fill.Price),
		Seq:     fill.Seq,
		TsEvent: fill.TsEvent,
	}
	select {
	case w.ch <- rec:
	default:
		if atomic.AddUint64(&w.drops, 1)%1000 == 1 {
			logs.Warnf("trade writer queue full, dropping trades (total drops %d)",
				atomic.LoadUint64(&w.drops))
		}
	}
}

// Drops returns the number of dropped trade records.
func (w *TradeWriter) Drops() uint64 {
	return atomic.LoadUint64(&w.drops)
}

// Close stops accepting new trades. Buffered trades are still flushed by
// Run.
func (w *TradeWriter) Close() {
	if atomic.CompareAndSwapUint32(&w.closed, 0, 1) {
		close(w.ch)
	}
}

// Run persists queued trades until the context is done or the writer is
// closed and drained.
func (w *TradeWriter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.s.SaveTrade(ctx, rec); err != nil {
				logs.Errorf("persist trade %s, err: %+v", rec.ID, err)
			}
		}
	}
}
