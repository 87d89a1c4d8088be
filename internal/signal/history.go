package signal

import (
	stderrors "errors"
	"sort"

	"main/internal/schema"
	"main/pkg/exception"
)

// SignalKind identifies one derived price series.
type SignalKind uint16

const (
	SignalUnknown SignalKind = iota
	SignalMid
	SignalSpread
	SignalDifference
)

// String returns a short label for logs.
func (k SignalKind) String() string {
	switch k {
	case SignalMid:
		return "mid"
	case SignalSpread:
		return "spread"
	case SignalDifference:
		return "difference"
	default:
		return "unknown"
	}
}

// HistoryKey identifies one bucketed point of a derived series. Venue is
// zero for cross-venue series.
type HistoryKey struct {
	Name   string
	Venue  schema.VenueID
	Kind   SignalKind
	Bucket int64
}

// HistoryRow is one point of a rolling derived price series. Within a
// bucket the latest value wins; rows are derived and safe to evict.
type HistoryRow struct {
	Name   string
	Venue  schema.VenueID
	Kind   SignalKind
	Bucket int64
	Value  schema.Price
	Ts     int64
}

// Key implements table.Row.
func (r HistoryRow) Key() HistoryKey {
	return HistoryKey{Name: r.Name, Venue: r.Venue, Kind: r.Kind, Bucket: r.Bucket}
}

// Timestamp implements table.Row.
func (r HistoryRow) Timestamp() int64 {
	return r.Ts
}

// CandleKey identifies one candle bucket for a symbol.
type CandleKey struct {
	Symbol schema.SymbolID
	Bucket int64
}

// CandleRow aggregates trades of one symbol within a time bucket.
type CandleRow struct {
	Symbol schema.SymbolID
	Venue  schema.VenueID
	Name   string
	Bucket int64
	Open   schema.Price
	High   schema.Price
	Low    schema.Price
	Close  schema.Price
	Volume schema.Quantity
	Trades int64
	Ts     int64
}

// Key implements table.Row.
func (r CandleRow) Key() CandleKey {
	return CandleKey{Symbol: r.Symbol, Bucket: r.Bucket}
}

// Timestamp implements table.Row.
func (r CandleRow) Timestamp() int64 {
	return r.Ts
}

func (b *Board) bucketOf(ts int64) int64 {
	w := int64(b.bucket)
	return ts - ts%w
}

func (b *Board) recordHistory(name string, venue schema.VenueID, kind SignalKind, value schema.Price, ts int64) {
	b.history.Upsert(HistoryRow{
		Name:   name,
		Venue:  venue,
		Kind:   kind,
		Bucket: b.bucketOf(ts),
		Value:  value,
		Ts:     ts,
	})
}

func (b *Board) foldCandle(ev schema.MarketEvent, sym schema.Symbol) {
	if ev.Price <= 0 {
		return
	}
	key := CandleKey{Symbol: ev.SymbolID, Bucket: b.bucketOf(ev.TsEvent)}
	err := b.candles.UpdateField(key, func(r *CandleRow) {
		if ev.Price > r.High {
			r.High = ev.Price
		}
		if ev.Price < r.Low {
			r.Low = ev.Price
		}
		r.Close = ev.Price
		r.Volume += ev.Size
		r.Trades++
		r.Ts = ev.TsEvent
	})
	if stderrors.Is(err, exception.ErrNotFound) {
		b.candles.Upsert(CandleRow{
			Symbol: ev.SymbolID,
			Venue:  ev.VenueID,
			Name:   sym.Name,
			Bucket: key.Bucket,
			Open:   ev.Price,
			High:   ev.Price,
			Low:    ev.Price,
			Close:  ev.Price,
			Volume: ev.Size,
			Trades: 1,
			Ts:     ev.TsEvent,
		})
	}
}

// History returns the bucketed series for one instrument and kind with
// bucket >= since, oldest first. Venue is zero for cross-venue series.
func (b *Board) History(name string, venue schema.VenueID, kind SignalKind, since int64) []HistoryRow {
	rows := b.history.Scan(func(r HistoryRow) bool {
		return r.Name == name && r.Venue == venue && r.Kind == kind && r.Bucket >= since
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].Bucket < rows[j].Bucket })
	return rows
}

// Candles returns the candle series for a symbol with bucket >= since,
// oldest first.
func (b *Board) Candles(symbol schema.SymbolID, since int64) []CandleRow {
	rows := b.candles.Scan(func(r CandleRow) bool {
		return r.Symbol == symbol && r.Bucket >= since
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].Bucket < rows[j].Bucket })
	return rows
}
