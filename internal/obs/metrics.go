package obs

import (
	"sync/atomic"
	"time"

	"main/internal/risk"
	"main/internal/schema"
)

const (
	maxEventType  = int(schema.EventSweep)
	maxRiskReason = int(risk.ReasonPositionLimit)
)

// Metrics collects lightweight counters and latency stats. All methods are
// safe for concurrent use and nil-receiver tolerant so callers can run
// without metrics wired.
type Metrics struct {
	eventCounts      [maxEventType + 1]uint64
	riskDenialCounts [maxRiskReason + 1]uint64
	queueDrops       uint64
	ordersSubmitted  uint64
	ordersRejected   uint64
	fillsApplied     uint64
	rowsSwept        uint64
	anomalies        uint64

	eventLatency     LatencyStats
	orderFlowLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts      map[schema.EventType]uint64
	RiskDenialCounts map[risk.Reason]uint64
	QueueDrops       uint64
	OrdersSubmitted  uint64
	OrdersRejected   uint64
	FillsApplied     uint64
	RowsSwept        uint64
	Anomalies        uint64
	EventLatency     LatencySnapshot
	OrderFlowLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent counts one pipeline event and tracks feed-to-engine latency
// when both timestamps are present.
func (m *Metrics) ObserveEvent(t schema.EventType, tsEvent, tsRecv int64) {
	if m == nil {
		return
	}
	idx := int(t)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
	promEvents.WithLabelValues(t.String()).Inc()
	if tsEvent > 0 && tsRecv > 0 && tsRecv >= tsEvent {
		m.eventLatency.Observe(time.Duration(tsRecv - tsEvent))
	}
}

// IncRiskDenial counts a denied order intent.
func (m *Metrics) IncRiskDenial(reason risk.Reason) {
	if m == nil {
		return
	}
	idx := int(reason)
	if idx >= 0 && idx < len(m.riskDenialCounts) {
		atomic.AddUint64(&m.riskDenialCounts[idx], 1)
	}
	promRiskDenials.WithLabelValues(reason.String()).Inc()
}

// IncQueueDrop records a rejected queue publish.
func (m *Metrics) IncQueueDrop(queue string) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
	promQueueDrops.WithLabelValues(queue).Inc()
}

// IncOrderSubmitted counts a dispatched order.
func (m *Metrics) IncOrderSubmitted(side schema.OrderSide) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersSubmitted, 1)
	promOrders.WithLabelValues("submitted", side.String()).Inc()
}

// IncOrderRejected counts a locally or remotely rejected order.
func (m *Metrics) IncOrderRejected(side schema.OrderSide) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersRejected, 1)
	promOrders.WithLabelValues("rejected", side.String()).Inc()
}

// IncFillApplied counts an applied fill.
func (m *Metrics) IncFillApplied() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.fillsApplied, 1)
	promFills.Inc()
}

// AddRowsSwept counts rows removed by a retention sweep.
func (m *Metrics) AddRowsSwept(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	atomic.AddUint64(&m.rowsSwept, uint64(n))
	promSweptRows.WithLabelValues(table).Add(float64(n))
}

// IncAnomaly counts an audited order event anomaly.
func (m *Metrics) IncAnomaly() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.anomalies, 1)
	promAnomalies.Inc()
}

// ObserveOrderFlow measures intent-to-dispatch latency.
func (m *Metrics) ObserveOrderFlow(d time.Duration) {
	if m == nil {
		return
	}
	m.orderFlowLatency.Observe(d)
	promOrderFlow.Observe(d.Seconds())
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[schema.EventType]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[schema.EventType(i)] = v
		}
	}
	denials := make(map[risk.Reason]uint64)
	for i := range m.riskDenialCounts {
		if v := atomic.LoadUint64(&m.riskDenialCounts[i]); v > 0 {
			denials[risk.Reason(i)] = v
		}
	}
	return Snapshot{
		EventCounts:      eventCounts,
		RiskDenialCounts: denials,
		QueueDrops:       atomic.LoadUint64(&m.queueDrops),
		OrdersSubmitted:  atomic.LoadUint64(&m.ordersSubmitted),
		OrdersRejected:   atomic.LoadUint64(&m.ordersRejected),
		FillsApplied:     atomic.LoadUint64(&m.fillsApplied),
		RowsSwept:        atomic.LoadUint64(&m.rowsSwept),
		Anomalies:        atomic.LoadUint64(&m.anomalies),
		EventLatency:     m.eventLatency.Snapshot(),
		OrderFlowLatency: m.orderFlowLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
