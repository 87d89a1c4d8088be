package og

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/adapter"
	"main/internal/ledger"
	"main/internal/schema"
	"main/internal/table"
	"main/pkg/exception"
)

// Config controls order manager behavior.
type Config struct {
	SubmitTimeout time.Duration `json:"submitTimeout"`
	CancelTimeout time.Duration `json:"cancelTimeout"`
	ArchiveAfter  time.Duration `json:"archiveAfter"`
}

const (
	defaultSubmitTimeout = 3 * time.Second
	defaultCancelTimeout = 3 * time.Second
	defaultArchiveAfter  = time.Hour
)

// Manager owns the order lifecycle. It is the sole writer of order rows:
// submissions, acknowledgments, fills and cancellations all pass through
// it, serialized by one mutex. Reads go directly to the order table.
type Manager struct {
	cfg    Config
	reg    *schema.Registry
	led    *ledger.Ledger
	exec   adapter.Execution
	orders *table.Table[uint64, OrderRow]
	audit  *AuditTrail

	mu     sync.Mutex
	nextID uint64
}

// NewManager creates an order manager writing into the given order table.
func NewManager(cfg Config, reg *schema.Registry, led *ledger.Ledger, exec adapter.Execution, orders *table.Table[uint64, OrderRow]) *Manager {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.CancelTimeout <= 0 {
		cfg.CancelTimeout = defaultCancelTimeout
	}
	if cfg.ArchiveAfter <= 0 {
		cfg.ArchiveAfter = defaultArchiveAfter
	}
	return &Manager{
		cfg:    cfg,
		reg:    reg,
		led:    led,
		exec:   exec,
		orders: orders,
		audit:  NewAuditTrail(0),
	}
}

// Audit returns the anomaly reconciliation trail.
func (m *Manager) Audit() *AuditTrail {
	return m.audit
}

// Order returns a copy of the order row.
func (m *Manager) Order(id uint64) (OrderRow, bool) {
	return m.orders.Get(id)
}

// OpenOrders returns copies of the non-terminal orders for a symbol.
func (m *Manager) OpenOrders(symbol schema.SymbolID) []OrderRow {
	rows, err := m.orders.ScanIndex(IndexSymbol, fmt.Sprintf("%d", symbol))
	if err != nil {
		return nil
	}
	open := rows[:0]
	for _, row := range rows {
		if !row.State.IsTerminal() {
			open = append(open, row)
		}
	}
	return open
}

// Submit validates the intent, reserves balance and dispatches the order.
// Reservation failure rejects locally without any adapter call. A dispatch
// timeout rejects locally with balance release; a late acknowledgment for
// such an order lands in the audit trail.
func (m *Manager) Submit(ctx context.Context, intent schema.OrderIntent) (uint64, error) {
	sym, ok := m.reg.Symbol(intent.SymbolID)
	if !ok {
		return 0, errors.Wrap(exception.ErrOrderInvalidIntent, "unknown symbol")
	}
	if _, ok := m.reg.Account(intent.AccountID); !ok {
		return 0, errors.Wrap(exception.ErrOrderInvalidIntent, "unknown account")
	}
	if intent.Qty <= 0 || intent.Price <= 0 {
		return 0, errors.Wrap(exception.ErrOrderInvalidIntent, "non-positive price or qty")
	}
	reserveAsset, reserveAmt, overflow := reservation(sym, intent)
	if overflow {
		return 0, errors.Wrap(exception.ErrOrderInvalidIntent, "notional overflow")
	}

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	now := time.Now().UnixNano()
	row := OrderRow{
		ID:           id,
		Account:      intent.AccountID,
		Symbol:       intent.SymbolID,
		Side:         intent.Side,
		Type:         intent.Type,
		TimeInForce:  intent.TimeInForce,
		Price:        intent.Price,
		Qty:          intent.Qty,
		State:        OrderStateNew,
		ReserveAsset: reserveAsset,
		TsSubmit:     now,
		TsUpdate:     now,
	}

	if err := m.led.Reserve(intent.AccountID, reserveAsset, reserveAmt); err != nil {
		row.State = OrderStateRejected
		row.Reason = "balance reservation failed"
		_ = m.orders.Insert(row)
		m.mu.Unlock()
		return id, errors.Wrap(err, "reserve balance")
	}
	row.Reserved = reserveAmt
	row.ReservedLeft = reserveAmt
	// mark submitted before dispatch so a synchronous ack from the
	// adapter observes a legal state
	row.State = OrderStateSubmitted
	_ = m.orders.Insert(row)
	m.mu.Unlock()

	subCtx, cancel := context.WithTimeout(ctx, m.cfg.SubmitTimeout)
	defer cancel()
	if err := m.exec.Submit(subCtx, adapter.SubmitRequest{
		OrderID:     id,
		Symbol:      sym,
		Side:        intent.Side,
		Type:        intent.Type,
		TimeInForce: intent.TimeInForce,
		Price:       intent.Price,
		Qty:         intent.Qty,
	}); err != nil {
		err = mapAdapterErr(err)
		m.rejectLocally(id, "dispatch failed: "+err.Error())
		return id, errors.Wrap(err, "submit order")
	}
	return id, nil
}

// Cancel dispatches a cancellation for a live order. The Canceled
// transition is applied when the venue confirms via OnAck.
func (m *Manager) Cancel(ctx context.Context, id uint64) error {
	m.mu.Lock()
	row, ok := m.orders.Get(id)
	if !ok {
		m.mu.Unlock()
		return exception.ErrUnknownOrder
	}
	if row.State.IsTerminal() {
		m.mu.Unlock()
		return exception.ErrIllegalTransition
	}
	sym, _ := m.reg.Symbol(row.Symbol)
	m.mu.Unlock()

	cancelCtx, cancel := context.WithTimeout(ctx, m.cfg.CancelTimeout)
	defer cancel()
	if err := m.exec.Cancel(cancelCtx, adapter.CancelRequest{
		OrderID:         id,
		ExchangeOrderID: row.ExchangeOrderID,
		Symbol:          sym,
	}); err != nil {
		return errors.Wrap(mapAdapterErr(err), "cancel order")
	}
	return nil
}

// OnAck implements adapter.Events.
func (m *Manager) OnAck(ack schema.OrderAck) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.orders.Get(ack.OrderID)
	if !ok {
		m.audit.Record(ack.OrderID, AuditUnknownOrder, "ack for unknown order")
		return
	}
	if row.State.IsTerminal() {
		m.audit.Record(ack.OrderID, AuditLateAck,
			fmt.Sprintf("ack status=%d after terminal state %s", ack.Status, row.State))
		return
	}

	switch ack.Status {
	case schema.AckStatusAcked:
		if !row.State.canAck() {
			m.audit.Record(ack.OrderID, AuditIllegalTransition,
				fmt.Sprintf("ack in state %s", row.State))
			return
		}
		_ = m.orders.UpdateField(ack.OrderID, func(r *OrderRow) {
			r.State = OrderStateAcked
			r.ExchangeOrderID = ack.ExchangeOrderID
			r.TsUpdate = eventTs(ack.TsEvent)
		})
	case schema.AckStatusRejected:
		m.terminateLocked(row, OrderStateRejected, ack.Reason)
	case schema.AckStatusCanceled:
		m.terminateLocked(row, OrderStateCanceled, ack.Reason)
	default:
		m.audit.Record(ack.OrderID, AuditIllegalTransition,
			fmt.Sprintf("unknown ack status %d", ack.Status))
	}
}

// OnFill implements adapter.Events. Replayed sequence numbers and fills on
// terminal orders are dropped into the audit trail, never double-applied.
func (m *Manager) OnFill(fill schema.Fill) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.orders.Get(fill.OrderID)
	if !ok {
		m.audit.Record(fill.OrderID, AuditUnknownOrder, "fill for unknown order")
		return
	}
	if row.State.IsTerminal() {
		m.audit.Record(fill.OrderID, AuditFillAfterTerminal,
			fmt.Sprintf("fill qty=%d in state %s", fill.Qty, row.State))
		return
	}
	if !row.State.canFill() && row.State != OrderStateSubmitted {
		m.audit.Record(fill.OrderID, AuditIllegalTransition,
			fmt.Sprintf("fill in state %s", row.State))
		return
	}
	if fill.Seq != 0 && fill.Seq <= row.FillSeq {
		m.audit.Record(fill.OrderID, AuditDuplicateFill,
			fmt.Sprintf("seq %d already consumed (last %d)", fill.Seq, row.FillSeq))
		return
	}
	if fill.Qty <= 0 || row.FilledQty+fill.Qty > row.Qty {
		m.audit.Record(fill.OrderID, AuditFillOverflow,
			fmt.Sprintf("fill qty=%d filled=%d requested=%d", fill.Qty, row.FilledQty, row.Qty))
		return
	}

	if err := m.led.ApplyFill(ledger.FillApplication{
		Account: row.Account,
		Symbol:  row.Symbol,
		Side:    row.Side,
		Qty:     fill.Qty,
		Price:   fill.Price,
		TsEvent: fill.TsEvent,
	}); err != nil {
		m.audit.Record(fill.OrderID, AuditIllegalTransition, "ledger rejected fill: "+err.Error())
		return
	}

	sym, _ := m.reg.Symbol(row.Symbol)
	consumed := consumedReservation(sym, row.Side, fill)
	_ = m.orders.UpdateField(fill.OrderID, func(r *OrderRow) {
		avg, _ := schema.WeightedAvgPrice(r.AvgFillPrice, int64(r.FilledQty), fill.Price, int64(fill.Qty))
		r.AvgFillPrice = avg
		r.FilledQty += fill.Qty
		if fill.Seq > r.FillSeq {
			r.FillSeq = fill.Seq
		}
		if consumed >= r.ReservedLeft {
			r.ReservedLeft = 0
		} else {
			r.ReservedLeft -= consumed
		}
		if r.FilledQty == r.Qty {
			r.State = OrderStateFilled
		} else {
			r.State = OrderStatePartFilled
		}
		r.TsUpdate = eventTs(fill.TsEvent)
	})

	// a completed order releases whatever reservation the fills did not
	// consume (price improvement)
	if updated, ok := m.orders.Get(fill.OrderID); ok && updated.State == OrderStateFilled && updated.ReservedLeft > 0 {
		m.releaseLocked(updated)
	}
}

// rejectLocally moves a live order to Rejected and releases its remaining
// reservation. Used for dispatch failures and timeouts.
func (m *Manager) rejectLocally(id uint64, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.orders.Get(id)
	if !ok || row.State.IsTerminal() {
		return
	}
	m.terminateLocked(row, OrderStateRejected, reason)
}

func (m *Manager) terminateLocked(row OrderRow, state OrderState, reason string) {
	_ = m.orders.UpdateField(row.ID, func(r *OrderRow) {
		r.State = state
		r.Reason = reason
		r.TsUpdate = time.Now().UnixNano()
	})
	if updated, ok := m.orders.Get(row.ID); ok {
		m.releaseLocked(updated)
	}
}

// releaseLocked returns the unconsumed reservation to the ledger exactly
// once and zeroes the tracked remainder.
func (m *Manager) releaseLocked(row OrderRow) {
	if row.ReservedLeft <= 0 {
		return
	}
	if err := m.led.Release(row.Account, row.ReserveAsset, row.ReservedLeft); err != nil {
		m.audit.Record(row.ID, AuditIllegalTransition, "release failed: "+err.Error())
	}
	_ = m.orders.UpdateField(row.ID, func(r *OrderRow) {
		r.ReservedLeft = 0
	})
}

func reservation(sym schema.Symbol, intent schema.OrderIntent) (schema.AssetID, schema.Amount, bool) {
	if intent.Side == schema.OrderSideBuy {
		amt, overflow := schema.NotionalAmount(intent.Price, intent.Qty, sym.Scale.QuantityScale)
		return sym.Quote, amt, overflow
	}
	return sym.Base, schema.Amount(intent.Qty), false
}

func consumedReservation(sym schema.Symbol, side schema.OrderSide, fill schema.Fill) schema.Amount {
	if side == schema.OrderSideBuy {
		amt, overflow := schema.NotionalAmount(fill.Price, fill.Qty, sym.Scale.QuantityScale)
		if overflow {
			return 0
		}
		return amt
	}
	return schema.Amount(fill.Qty)
}

func mapAdapterErr(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return exception.ErrAdapterTimeout
	}
	return err
}

func eventTs(ts int64) int64 {
	if ts == 0 {
		return time.Now().UnixNano()
	}
	return ts
}
