package ledger

import (
	"strconv"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/schema"
	"main/internal/table"
	"main/pkg/exception"
)

// Ledger owns the balance and position tables. All mutations go through
// its reconciliation operations; every other component only reads the
// snapshots. Reads do not take the ledger mutex.
type Ledger struct {
	mu        sync.Mutex
	reg       *schema.Registry
	balances  *table.Table[BalanceKey, BalanceRow]
	positions *table.Table[PositionKey, PositionRow]
}

// New creates an empty ledger for the given registry.
func New(reg *schema.Registry) *Ledger {
	return &Ledger{
		reg: reg,
		balances: table.New[BalanceKey, BalanceRow](table.Config{Name: "balances"}).
			WithIndex(IndexAccount, accountTermBalance),
		positions: table.New[PositionKey, PositionRow](table.Config{Name: "positions"}).
			WithIndex(IndexAccount, accountTermPosition),
	}
}

// Deposit credits available balance. Used at startup to seed accounts and
// by funding events.
func (l *Ledger) Deposit(account schema.AccountID, asset schema.AssetID, amount schema.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.creditLocked(account, asset, amount)
}

// Reserve moves amount from available to locked against an open order.
// Fails with exception.ErrInsufficientBalance without mutating anything.
func (l *Ledger) Reserve(account schema.AccountID, asset schema.AssetID, amount schema.Amount) error {
	if amount <= 0 {
		return exception.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.balances.Get(BalanceKey{Account: account, Asset: asset})
	if !ok || row.Available < amount {
		return exception.ErrInsufficientBalance
	}
	return l.balances.UpdateField(row.Key(), func(r *BalanceRow) {
		r.Available -= amount
		r.Locked += amount
		r.Ts = time.Now().UnixNano()
	})
}

// Release moves amount back from locked to available on cancellation or
// rejection. A release beyond the locked amount indicates a
// reservation-tracking bug upstream: it is reported via
// exception.ErrOverRelease and the locked amount is left as is.
func (l *Ledger) Release(account schema.AccountID, asset schema.AssetID, amount schema.Amount) error {
	if amount <= 0 {
		return exception.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.balances.Get(BalanceKey{Account: account, Asset: asset})
	if !ok || row.Locked < amount {
		logs.Errorf("over release: account=%d asset=%d amount=%d locked=%d",
			account, asset, amount, row.Locked)
		return exception.ErrOverRelease
	}
	return l.balances.UpdateField(row.Key(), func(r *BalanceRow) {
		r.Locked -= amount
		r.Available += amount
		r.Ts = time.Now().UnixNano()
	})
}

// FillApplication describes one confirmed fill to reconcile.
type FillApplication struct {
	Account schema.AccountID
	Symbol  schema.SymbolID
	Side    schema.OrderSide
	Qty     schema.Quantity
	Price   schema.Price
	TsEvent int64
}

// ApplyFill atomically updates the position and both balances for one
// fill. Per-order fill ordering is enforced by the order manager; the
// ledger applies fills in call order.
func (l *Ledger) ApplyFill(fill FillApplication) error {
	if fill.Qty <= 0 || fill.Price <= 0 {
		return exception.ErrInvalidArgument
	}
	sym, ok := l.reg.Symbol(fill.Symbol)
	if !ok {
		return exception.ErrInvalidArgument
	}
	quoteAmt, overflow := schema.NotionalAmount(fill.Price, fill.Qty, sym.Scale.QuantityScale)
	if overflow {
		return exception.ErrInvalidArgument
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch fill.Side {
	case schema.OrderSideBuy:
		l.consumeLocked(fill.Account, sym.Quote, quoteAmt)
		l.creditLocked(fill.Account, sym.Base, schema.Amount(fill.Qty))
	case schema.OrderSideSell:
		l.consumeLocked(fill.Account, sym.Base, schema.Amount(fill.Qty))
		l.creditLocked(fill.Account, sym.Quote, quoteAmt)
	default:
		return exception.ErrInvalidArgument
	}

	l.applyPositionLocked(fill)
	return nil
}

// Balance returns a copy of the balance row.
func (l *Ledger) Balance(account schema.AccountID, asset schema.AssetID) (BalanceRow, bool) {
	return l.balances.Get(BalanceKey{Account: account, Asset: asset})
}

// Position returns a copy of the position row.
func (l *Ledger) Position(account schema.AccountID, symbol schema.SymbolID) (PositionRow, bool) {
	return l.positions.Get(PositionKey{Account: account, Symbol: symbol})
}

// AccountBalances returns copies of all balance rows for one account.
func (l *Ledger) AccountBalances(account schema.AccountID) []BalanceRow {
	rows, err := l.balances.ScanIndex(IndexAccount, strconv.FormatUint(uint64(account), 10))
	if err != nil {
		return nil
	}
	return rows
}

// AccountPositions returns copies of all position rows for one account.
func (l *Ledger) AccountPositions(account schema.AccountID) []PositionRow {
	rows, err := l.positions.ScanIndex(IndexAccount, strconv.FormatUint(uint64(account), 10))
	if err != nil {
		return nil
	}
	return rows
}

// creditLocked adds to the available amount, creating the row on demand.
func (l *Ledger) creditLocked(account schema.AccountID, asset schema.AssetID, amount schema.Amount) {
	key := BalanceKey{Account: account, Asset: asset}
	err := l.balances.UpdateField(key, func(r *BalanceRow) {
		r.Available += amount
		r.Ts = time.Now().UnixNano()
	})
	if err != nil {
		l.balances.Upsert(BalanceRow{
			Account:   account,
			Asset:     asset,
			Available: amount,
			Ts:        time.Now().UnixNano(),
		})
	}
}

// consumeLocked burns reserved funds for the filled portion. A shortfall
// is an upstream accounting anomaly: it is logged and clamped so the
// balance invariant holds.
func (l *Ledger) consumeLocked(account schema.AccountID, asset schema.AssetID, amount schema.Amount) {
	key := BalanceKey{Account: account, Asset: asset}
	err := l.balances.UpdateField(key, func(r *BalanceRow) {
		if r.Locked < amount {
			logs.Warnf("fill consumes more than locked: account=%d asset=%d amount=%d locked=%d",
				account, asset, amount, r.Locked)
			r.Locked = 0
			return
		}
		r.Locked -= amount
		r.Ts = time.Now().UnixNano()
	})
	if err != nil {
		logs.Warnf("fill consume on missing balance row: account=%d asset=%d", account, asset)
	}
}

func (l *Ledger) applyPositionLocked(fill FillApplication) {
	delta := int64(fill.Qty)
	if fill.Side == schema.OrderSideSell {
		delta = -delta
	}
	ts := fill.TsEvent
	if ts == 0 {
		ts = time.Now().UnixNano()
	}

	key := PositionKey{Account: fill.Account, Symbol: fill.Symbol}
	row, ok := l.positions.Get(key)
	if !ok {
		l.positions.Upsert(PositionRow{
			Account:  fill.Account,
			Symbol:   fill.Symbol,
			Size:     schema.Quantity(delta),
			AvgEntry: fill.Price,
			Ts:       ts,
		})
		return
	}

	oldSize := int64(row.Size)
	newSize := oldSize + delta
	next := row
	next.Ts = ts

	switch {
	case oldSize == 0 || sameSign(oldSize, delta):
		avg, overflow := schema.WeightedAvgPrice(row.AvgEntry, oldSize, fill.Price, delta)
		if overflow {
			logs.Warnf("weighted average overflow: oldAvg=%d oldSize=%d price=%d delta=%d",
				row.AvgEntry, oldSize, fill.Price, delta)
		}
		next.AvgEntry = avg
		next.Size = schema.Quantity(newSize)
	case sameSign(oldSize, newSize) || newSize == 0:
		// exposure reduced without crossing zero
		closed := delta
		if closed < 0 {
			closed = -closed
		}
		next.RealizedPnl += realized(fill.Price, row.AvgEntry, closed, oldSize)
		next.Size = schema.Quantity(newSize)
	default:
		// crossed zero: close the whole old exposure, open the remainder
		closed := oldSize
		if closed < 0 {
			closed = -closed
		}
		next.RealizedPnl += realized(fill.Price, row.AvgEntry, closed, oldSize)
		next.Size = schema.Quantity(newSize)
		next.AvgEntry = fill.Price
	}
	l.positions.Upsert(next)
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

// realized computes pnl on an exposure-reducing fill against the old
// average entry. Long positions gain when price > avg, shorts the inverse.
func realized(price, avg schema.Price, closedQty, oldSize int64) schema.Notional {
	diff := int64(price) - int64(avg)
	if oldSize < 0 {
		diff = -diff
	}
	pnl, overflow := schema.MulNotional(schema.Price(diff), schema.Quantity(closedQty))
	if overflow {
		logs.Warnf("realized pnl overflow: price=%d avg=%d closed=%d", price, avg, closedQty)
		return 0
	}
	return pnl
}
