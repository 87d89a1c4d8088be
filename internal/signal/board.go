package signal

import (
	"sync"
	"time"

	"main/internal/schema"
	"main/internal/table"
)

// Board maintains derived price signals in volatile tables: per-venue
// quotes, cross-venue spreads, watched venue-pair differences, funding
// snapshots, bucketed signal history and trade candles. The pipeline's
// table writer is the only caller of OnMarket; strategies read snapshots
// through the accessors.
type Board struct {
	reg     *schema.Registry
	bucket  time.Duration
	quotes  *table.Table[schema.SymbolID, QuoteRow]
	spreads *table.Table[string, SpreadRow]
	diffs   *table.Table[string, DiffRow]
	funding *table.Table[schema.SymbolID, FundingRow]
	history *table.Table[HistoryKey, HistoryRow]
	candles *table.Table[CandleKey, CandleRow]

	mu    sync.RWMutex
	pairs map[string][2]schema.VenueID
}

// Config bounds the board tables and sets the history bucket width.
// Zero retention values default to a one hour rolling window; a zero
// bucket defaults to one second.
type Config struct {
	QuoteRetention   table.Retention
	HistoryRetention table.Retention
	CandleRetention  table.Retention
	Bucket           time.Duration
}

// NewBoard creates a signal board. Latest-value rows (quote, spread,
// difference, funding) are recomputed on every event; history and candle
// rows accumulate per time bucket and age out per their retention.
func NewBoard(reg *schema.Registry, cfg Config) *Board {
	if cfg.Bucket <= 0 {
		cfg.Bucket = time.Second
	}
	if cfg.HistoryRetention == (table.Retention{}) {
		cfg.HistoryRetention = table.Retention{MaxAge: time.Hour}
	}
	if cfg.CandleRetention == (table.Retention{}) {
		cfg.CandleRetention = table.Retention{MaxAge: time.Hour}
	}
	return &Board{
		reg:    reg,
		bucket: cfg.Bucket,
		quotes: table.New[schema.SymbolID, QuoteRow](table.Config{
			Name:      "quotes",
			Retention: cfg.QuoteRetention,
		}).WithIndex(IndexName, func(r QuoteRow) string { return r.Name }),
		spreads: table.New[string, SpreadRow](table.Config{Name: "spreads"}),
		diffs:   table.New[string, DiffRow](table.Config{Name: "price_diffs"}),
		funding: table.New[schema.SymbolID, FundingRow](table.Config{Name: "funding"}),
		history: table.New[HistoryKey, HistoryRow](table.Config{
			Name:      "signal_history",
			Retention: cfg.HistoryRetention,
		}),
		candles: table.New[CandleKey, CandleRow](table.Config{
			Name:      "candles",
			Retention: cfg.CandleRetention,
		}),
		pairs: make(map[string][2]schema.VenueID),
	}
}

// WatchDifference registers a venue pair whose mid-price difference is
// tracked for the instrument name.
func (b *Board) WatchDifference(name string, venueA, venueB schema.VenueID) {
	b.mu.Lock()
	b.pairs[name] = [2]schema.VenueID{venueA, venueB}
	b.mu.Unlock()
}

// OnMarket folds a normalized market event into the signal tables.
func (b *Board) OnMarket(ev schema.MarketEvent) {
	sym, ok := b.reg.Symbol(ev.SymbolID)
	if !ok {
		return
	}

	switch ev.Kind {
	case schema.MarketDataQuote:
		b.quotes.Upsert(QuoteRow{
			Symbol:   ev.SymbolID,
			Venue:    ev.VenueID,
			Name:     sym.Name,
			BidPrice: ev.BidPrice,
			BidSize:  ev.BidSize,
			AskPrice: ev.AskPrice,
			AskSize:  ev.AskSize,
			Ts:       ev.TsEvent,
		})
		if ev.BidPrice > 0 && ev.AskPrice > 0 {
			b.recordHistory(sym.Name, ev.VenueID, SignalMid, (ev.BidPrice+ev.AskPrice)/2, ev.TsEvent)
		}
		b.recompute(sym.Name, ev.TsEvent)
	case schema.MarketDataTrade, schema.MarketDataCandle:
		b.foldCandle(ev, sym)
	case schema.MarketDataFundingRate:
		b.funding.Upsert(FundingRow{
			Symbol: ev.SymbolID,
			Venue:  ev.VenueID,
			Name:   sym.Name,
			Rate:   ev.Rate,
			Ts:     ev.TsEvent,
		})
	}
}

func (b *Board) recompute(name string, ts int64) {
	rows, err := b.quotes.ScanIndex(IndexName, name)
	if err != nil || len(rows) == 0 {
		return
	}

	var (
		bestBid, bestAsk   schema.Price
		bidVenue, askVenue schema.VenueID
	)
	for _, q := range rows {
		if q.BidPrice > 0 && (bestBid == 0 || q.BidPrice > bestBid) {
			bestBid = q.BidPrice
			bidVenue = q.Venue
		}
		if q.AskPrice > 0 && (bestAsk == 0 || q.AskPrice < bestAsk) {
			bestAsk = q.AskPrice
			askVenue = q.Venue
		}
	}
	if bestBid == 0 || bestAsk == 0 {
		return
	}
	b.spreads.Upsert(SpreadRow{
		Name:     name,
		BidVenue: bidVenue,
		AskVenue: askVenue,
		BestBid:  bestBid,
		BestAsk:  bestAsk,
		Spread:   bestBid - bestAsk,
		Ts:       ts,
	})
	b.recordHistory(name, 0, SignalSpread, bestBid-bestAsk, ts)

	b.mu.RLock()
	pair, watched := b.pairs[name]
	b.mu.RUnlock()
	if !watched {
		return
	}
	midA, okA := midFor(rows, pair[0])
	midB, okB := midFor(rows, pair[1])
	if !okA || !okB {
		return
	}
	b.diffs.Upsert(DiffRow{
		Name:   name,
		VenueA: pair[0],
		VenueB: pair[1],
		PriceA: midA,
		PriceB: midB,
		Diff:   midA - midB,
		Ts:     ts,
	})
	b.recordHistory(name, 0, SignalDifference, midA-midB, ts)
}

func midFor(rows []QuoteRow, venue schema.VenueID) (schema.Price, bool) {
	for _, q := range rows {
		if q.Venue != venue {
			continue
		}
		if q.BidPrice <= 0 || q.AskPrice <= 0 {
			return 0, false
		}
		return (q.BidPrice + q.AskPrice) / 2, true
	}
	return 0, false
}

// Quote returns the latest quote row for a symbol.
func (b *Board) Quote(symbol schema.SymbolID) (QuoteRow, bool) {
	return b.quotes.Get(symbol)
}

// Spread returns the latest cross-venue spread for an instrument name.
func (b *Board) Spread(name string) (SpreadRow, bool) {
	return b.spreads.Get(name)
}

// Difference returns the latest venue-pair difference for an instrument
// name.
func (b *Board) Difference(name string) (DiffRow, bool) {
	return b.diffs.Get(name)
}

// Funding returns the latest funding snapshot for a symbol.
func (b *Board) Funding(symbol schema.SymbolID) (FundingRow, bool) {
	return b.funding.Get(symbol)
}

// Sweepables exposes the tables that participate in retention sweeps.
func (b *Board) Sweepables() []table.Sweepable {
	return []table.Sweepable{b.quotes, b.history, b.candles}
}
