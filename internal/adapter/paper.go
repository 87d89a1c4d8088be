package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"main/internal/schema"
	"main/pkg/exception"
)

// Paper is an in-process execution adapter used by paper trading and
// tests. It never talks to a venue: acknowledgments and fills are produced
// locally, through the same Events stream a live adapter would use.
type Paper struct {
	mu      sync.Mutex
	events  Events
	open    map[uint64]SubmitRequest
	fillSeq map[uint64]uint64
	nextID  uint64

	// AutoAck emits the acknowledgment synchronously inside Submit.
	AutoAck bool
}

// NewPaper creates a paper adapter.
func NewPaper() *Paper {
	return &Paper{
		open:    make(map[uint64]SubmitRequest),
		fillSeq: make(map[uint64]uint64),
		AutoAck: true,
	}
}

// Bind attaches the event consumer. Must be called before Submit.
func (p *Paper) Bind(events Events) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = events
}

// Submit implements Execution.
func (p *Paper) Submit(ctx context.Context, req SubmitRequest) error {
	if err := ctx.Err(); err != nil {
		return exception.ErrAdapterTimeout
	}
	p.mu.Lock()
	if p.events == nil {
		p.mu.Unlock()
		return exception.ErrNilInstance
	}
	p.nextID++
	exchangeID := fmt.Sprintf("paper-%d", p.nextID)
	p.open[req.OrderID] = req
	events, autoAck := p.events, p.AutoAck
	p.mu.Unlock()

	if autoAck {
		events.OnAck(schema.OrderAck{
			OrderID:         req.OrderID,
			ExchangeOrderID: exchangeID,
			Status:          schema.AckStatusAcked,
			TsEvent:         time.Now().UnixNano(),
		})
	}
	return nil
}

// Cancel implements Execution.
func (p *Paper) Cancel(ctx context.Context, req CancelRequest) error {
	if err := ctx.Err(); err != nil {
		return exception.ErrAdapterTimeout
	}
	p.mu.Lock()
	_, ok := p.open[req.OrderID]
	if ok {
		delete(p.open, req.OrderID)
	}
	events := p.events
	p.mu.Unlock()

	if !ok {
		return exception.ErrAdapterRejected
	}
	events.OnAck(schema.OrderAck{
		OrderID: req.OrderID,
		Status:  schema.AckStatusCanceled,
		TsEvent: time.Now().UnixNano(),
	})
	return nil
}

// Fill emits the next fill for an open order.
func (p *Paper) Fill(orderID uint64, qty schema.Quantity, price schema.Price) error {
	p.mu.Lock()
	if _, ok := p.open[orderID]; !ok {
		p.mu.Unlock()
		return exception.ErrUnknownOrder
	}
	p.fillSeq[orderID]++
	seq := p.fillSeq[orderID]
	events := p.events
	p.mu.Unlock()

	events.OnFill(schema.Fill{
		OrderID: orderID,
		Seq:     seq,
		Qty:     qty,
		Price:   price,
		TsEvent: time.Now().UnixNano(),
	})
	return nil
}
