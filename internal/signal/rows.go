package signal

import "main/internal/schema"

// IndexName groups quote rows by instrument name so cross-venue scans hit
// one index bucket instead of the whole table.
const IndexName = "name"

// QuoteRow is the latest top-of-book quote for one symbol on one venue.
type QuoteRow struct {
	Symbol   schema.SymbolID
	Venue    schema.VenueID
	Name     string
	BidPrice schema.Price
	BidSize  schema.Quantity
	AskPrice schema.Price
	AskSize  schema.Quantity
	Ts       int64
}

// Key implements table.Row.
func (r QuoteRow) Key() schema.SymbolID {
	return r.Symbol
}

// Timestamp implements table.Row.
func (r QuoteRow) Timestamp() int64 {
	return r.Ts
}

// SpreadRow is the cross-venue arbitrage spread for one instrument name:
// the highest bid minus the lowest ask across all venues quoting it.
type SpreadRow struct {
	Name     string
	BidVenue schema.VenueID
	AskVenue schema.VenueID
	BestBid  schema.Price
	BestAsk  schema.Price
	Spread   schema.Price
	Ts       int64
}

// Key implements table.Row.
func (r SpreadRow) Key() string {
	return r.Name
}

// Timestamp implements table.Row.
func (r SpreadRow) Timestamp() int64 {
	return r.Ts
}

// DiffRow is the mid-price difference between a watched venue pair.
type DiffRow struct {
	Name   string
	VenueA schema.VenueID
	VenueB schema.VenueID
	PriceA schema.Price
	PriceB schema.Price
	Diff   schema.Price
	Ts     int64
}

// Key implements table.Row.
func (r DiffRow) Key() string {
	return r.Name
}

// Timestamp implements table.Row.
func (r DiffRow) Timestamp() int64 {
	return r.Ts
}

// FundingRow is the latest funding rate snapshot for one symbol.
type FundingRow struct {
	Symbol schema.SymbolID
	Venue  schema.VenueID
	Name   string
	Rate   int64
	Ts     int64
}

// Key implements table.Row.
func (r FundingRow) Key() schema.SymbolID {
	return r.Symbol
}

// Timestamp implements table.Row.
func (r FundingRow) Timestamp() int64 {
	return r.Ts
}
