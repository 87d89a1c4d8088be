package schema

// Price is a scaled integer. The scale is defined per symbol.
type Price int64

// Quantity is a scaled integer. The scale is defined per symbol.
type Quantity int64

// Notional is a scaled integer, the product scale of price and quantity.
type Notional int64

// Amount is a scaled balance amount for a single asset.
type Amount int64

// MarketDataKind describes the meaning of a market event payload.
type MarketDataKind uint16

const (
	MarketDataUnknown MarketDataKind = iota
	MarketDataTrade
	MarketDataQuote
	MarketDataCandle
	MarketDataFundingRate
)

// String returns a short label for table keys and logs.
func (k MarketDataKind) String() string {
	switch k {
	case MarketDataTrade:
		return "trade"
	case MarketDataQuote:
		return "quote"
	case MarketDataCandle:
		return "candle"
	case MarketDataFundingRate:
		return "funding_rate"
	default:
		return "unknown"
	}
}

// MarketEvent is a normalized market data event pushed by ingestion feeds.
type MarketEvent struct {
	SymbolID SymbolID
	VenueID  VenueID
	Kind     MarketDataKind
	Flags    uint16
	TsEvent  int64
	TsRecv   int64
	Price    Price
	Size     Quantity
	BidPrice Price
	BidSize  Quantity
	AskPrice Price
	AskSize  Quantity
	Rate     int64
}

// OrderSide describes order direction.
type OrderSide uint16

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

// String returns a short label for logs.
func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "buy"
	case OrderSideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderType describes order type.
type OrderType uint16

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeLimit
	OrderTypeMarket
)

// TimeInForce describes order time-in-force.
type TimeInForce uint16

const (
	TimeInForceUnknown TimeInForce = iota
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceFOK
)

// OrderIntent is emitted by the strategy and consumed by the order manager.
type OrderIntent struct {
	AccountID   AccountID
	SymbolID    SymbolID
	Side        OrderSide
	Type        OrderType
	TimeInForce TimeInForce
	Price       Price
	Qty         Quantity
	TsCreate    int64
}

// AckStatus describes the outcome of an exchange acknowledgment.
type AckStatus uint16

const (
	AckStatusUnknown AckStatus = iota
	AckStatusAcked
	AckStatusRejected
	AckStatusCanceled
)

// OrderAck is the exchange response to a submitted or canceled order.
type OrderAck struct {
	OrderID         uint64
	ExchangeOrderID string
	Status          AckStatus
	Reason          string
	TsEvent         int64
}

// Fill is a confirmed partial or full execution of an order.
//
// Seq is the per-order fill sequence number assigned by the adapter; replays
// of an already consumed sequence are dropped by the order manager.
type Fill struct {
	OrderID uint64
	Seq     uint64
	Qty     Quantity
	Price   Price
	TsEvent int64
}

const maxInt64 = int64(^uint64(0) >> 1)

// WeightedAvgPrice computes the weighted average entry price
// (|oldQty|*oldAvg + |qty|*price) / (|oldQty|+|qty|) in scaled integers,
// reporting overflow.
func WeightedAvgPrice(oldAvg Price, oldQty int64, price Price, qty int64) (Price, bool) {
	if oldQty < 0 {
		oldQty = -oldQty
	}
	if qty < 0 {
		qty = -qty
	}
	total := oldQty + qty
	if total == 0 {
		return oldAvg, false
	}
	oldNotional, overflowA := MulNotional(oldAvg, Quantity(oldQty))
	fillNotional, overflowB := MulNotional(price, Quantity(qty))
	if overflowA || overflowB {
		return oldAvg, true
	}
	return Price((int64(oldNotional) + int64(fillNotional)) / total), false
}

// MulNotional multiplies price and quantity, reporting overflow.
func MulNotional(price Price, qty Quantity) (Notional, bool) {
	p := int64(price)
	q := int64(qty)
	if p == 0 || q == 0 {
		return 0, false
	}
	ap, aq := p, q
	if ap < 0 {
		ap = -ap
	}
	if aq < 0 {
		aq = -aq
	}
	if ap > maxInt64/aq {
		return 0, true
	}
	return Notional(p * q), false
}
