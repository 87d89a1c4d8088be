package schema

// SchemaVersion is the current persisted schema version. Startup fails when
// the durable store reports a different version.
const SchemaVersion uint16 = 1

// EventType defines the category of an event flowing through the pipeline.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventMarketData
	EventOrderIntent
	EventOrderAck
	EventFill
	EventCancel
	EventSweep
)

// String returns a short label for metrics and logs.
func (t EventType) String() string {
	switch t {
	case EventMarketData:
		return "market_data"
	case EventOrderIntent:
		return "order_intent"
	case EventOrderAck:
		return "order_ack"
	case EventFill:
		return "fill"
	case EventCancel:
		return "cancel"
	case EventSweep:
		return "sweep"
	default:
		return "unknown"
	}
}
