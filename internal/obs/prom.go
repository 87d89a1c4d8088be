package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus series mirroring the atomic counters. Registered on the
// default registry and served by Handler at /metrics.
var (
	promEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_events_total",
			Help: "Pipeline events by type",
		},
		[]string{"type"},
	)

	promOrders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_orders_total",
			Help: "Orders by outcome and side",
		},
		[]string{"outcome", "side"},
	)

	promFills = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_fills_total",
			Help: "Fills applied to the ledger",
		},
	)

	promRiskDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_risk_denials_total",
			Help: "Order intents denied by the risk engine, by reason",
		},
		[]string{"reason"},
	)

	promQueueDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_queue_drops_total",
			Help: "Events rejected by full or closed queues",
		},
		[]string{"queue"},
	)

	promSweptRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_swept_rows_total",
			Help: "Rows removed by retention sweeps, by table",
		},
		[]string{"table"},
	)

	promAnomalies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_order_anomalies_total",
			Help: "Ignored order events recorded in the audit trail",
		},
	)

	promOrderFlow = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_order_flow_seconds",
			Help:    "Intent-to-dispatch latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)
)

// Handler serves the Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
