package og

import (
	"strconv"

	"main/internal/schema"
	"main/internal/table"
)

// OrderRow is the order table row. The order manager is its sole writer;
// every other component only reads copies.
type OrderRow struct {
	ID              uint64
	ExchangeOrderID string
	Account         schema.AccountID
	Symbol          schema.SymbolID
	Side            schema.OrderSide
	Type            schema.OrderType
	TimeInForce     schema.TimeInForce
	Price           schema.Price
	Qty             schema.Quantity
	FilledQty       schema.Quantity
	AvgFillPrice    schema.Price
	State           OrderState
	Reason          string
	FillSeq         uint64

	// reservation accounting: Reserved is the original locked amount,
	// ReservedLeft the portion neither consumed by fills nor released yet.
	ReserveAsset schema.AssetID
	Reserved     schema.Amount
	ReservedLeft schema.Amount

	TsSubmit int64
	TsUpdate int64
}

// Key implements table.Row.
func (r OrderRow) Key() uint64 {
	return r.ID
}

// Timestamp implements table.Row.
func (r OrderRow) Timestamp() int64 {
	return r.TsSubmit
}

// Secondary index names on the order table.
const (
	IndexSymbol = "symbol"
	IndexState  = "state"
)

func symbolTerm(r OrderRow) string {
	return strconv.FormatUint(uint64(r.Symbol), 10)
}

func stateTerm(r OrderRow) string {
	return r.State.String()
}

// NewOrderTable builds the volatile order table with its indices.
func NewOrderTable() *table.Table[uint64, OrderRow] {
	return table.New[uint64, OrderRow](table.Config{Name: "orders"}).
		WithIndex(IndexSymbol, symbolTerm).
		WithIndex(IndexState, stateTerm)
}

// NewPersistentOrderTable builds the order table backed by a durable store
// forwarder.
func NewPersistentOrderTable(fwd table.Forwarder[uint64, OrderRow]) (*table.Persistent[uint64, OrderRow], error) {
	p, err := table.NewPersistent[uint64, OrderRow](table.Config{Name: "orders"}, fwd)
	if err != nil {
		return nil, err
	}
	p.WithIndex(IndexSymbol, symbolTerm).WithIndex(IndexState, stateTerm)
	return p, nil
}
