package ledger

import (
	"strconv"

	"main/internal/schema"
)

// BalanceKey identifies a balance row.
type BalanceKey struct {
	Account schema.AccountID
	Asset   schema.AssetID
}

// BalanceRow holds the available and locked amounts of one asset for one
// account. Available+locked never goes negative.
type BalanceRow struct {
	Account   schema.AccountID
	Asset     schema.AssetID
	Available schema.Amount
	Locked    schema.Amount
	Ts        int64
}

// Key implements table.Row.
func (r BalanceRow) Key() BalanceKey {
	return BalanceKey{Account: r.Account, Asset: r.Asset}
}

// Timestamp implements table.Row.
func (r BalanceRow) Timestamp() int64 {
	return r.Ts
}

// PositionKey identifies a position row.
type PositionKey struct {
	Account schema.AccountID
	Symbol  schema.SymbolID
}

// PositionRow holds the net position of one instrument for one account.
// Size is signed; AvgEntry uses weighted-average-cost accounting.
type PositionRow struct {
	Account     schema.AccountID
	Symbol      schema.SymbolID
	Size        schema.Quantity
	AvgEntry    schema.Price
	RealizedPnl schema.Notional
	Ts          int64
}

// Key implements table.Row.
func (r PositionRow) Key() PositionKey {
	return PositionKey{Account: r.Account, Symbol: r.Symbol}
}

// Timestamp implements table.Row.
func (r PositionRow) Timestamp() int64 {
	return r.Ts
}

// IndexAccount is the secondary index term shared by both ledger tables.
const IndexAccount = "account"

func accountTermBalance(r BalanceRow) string {
	return strconv.FormatUint(uint64(r.Account), 10)
}

func accountTermPosition(r PositionRow) string {
	return strconv.FormatUint(uint64(r.Account), 10)
}
