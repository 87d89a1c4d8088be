package store

import "time"

// SchemaVersionRecord is the durable schema version marker. Startup
// compares the newest row against the compiled version.
type SchemaVersionRecord struct {
	ID        uint32 `gorm:"primaryKey;autoIncrement"`
	Version   uint16
	CreatedAt time.Time
}

// TableName implements gorm's table naming.
func (SchemaVersionRecord) TableName() string {
	return "schema_versions"
}

// OrderRecord is the durable mirror of a hot order row.
type OrderRecord struct {
	ID              uint64 `gorm:"primaryKey"`
	ExchangeOrderID string
	Account         uint32
	Symbol          uint32
	Side            uint16
	Type            uint16
	TimeInForce     uint16
	Price           int64
	Qty             int64
	FilledQty       int64
	AvgFillPrice    int64
	State           uint16
	Reason          string
	TsSubmit        int64
	TsUpdate        int64 `gorm:"index"`
}

// TableName implements gorm's table naming.
func (OrderRecord) TableName() string {
	return "orders"
}

// TradeRecord is one persisted fill.
type TradeRecord struct {
	ID      string `gorm:"primaryKey;size:36"`
	OrderID uint64 `gorm:"index"`
	Account uint32
	Symbol  uint32
	Side    uint16
	Qty     int64
	Price   int64
	Seq     uint64
	TsEvent int64
}

// TableName implements gorm's table naming.
func (TradeRecord) TableName() string {
	return "trades"
}
