// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	EventsProcessed  *prometheus.CounterVec
	EventsDropped    *prometheus.CounterVec
	HandlerLatency   *prometheus.HistogramVec
	HighestBlockSeen prometheus.Gauge

	// Price metrics
	PriceTicksApplied  prometheus.Counter
	PriceSnapshotsSize prometheus.Counter

	// Position metrics
	PositionsCreated  prometheus.Counter
	RiskEvaluations   prometheus.Counter
	PositionsAtRisk   *prometheus.GaugeVec
	SalesExecuted     *prometheus.CounterVec
	SnapshotsAppended prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastEventTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lending_risk_lab"
	}

	return &Metrics{
		// Engine metrics
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_processed_total",
			Help:      "Total number of feed events processed by type",
		}, []string{"event_type"}),
		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_dropped_total",
			Help:      "Total number of feed events dropped by type and reason",
		}, []string{"event_type", "reason"}),
		HandlerLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "handler_latency_seconds",
			Help:      "Event handler latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		HighestBlockSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "highest_block_seen",
			Help:      "Highest block number seen on the feed",
		}),

		// Price metrics
		PriceTicksApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prices",
			Name:      "ticks_applied_total",
			Help:      "Total number of oracle price ticks applied",
		}),
		PriceSnapshotsSize: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prices",
			Name:      "snapshots_appended_total",
			Help:      "Total number of price snapshots appended",
		}),

		// Position metrics
		PositionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "created_total",
			Help:      "Total number of debt positions created",
		}),
		RiskEvaluations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "risk_evaluations_total",
			Help:      "Total number of position risk evaluations",
		}),
		PositionsAtRisk: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "at_risk",
			Help:      "Number of positions last classified into each risk level",
		}, []string{"level"}),
		SalesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "sales_executed_total",
			Help:      "Total number of sale executions by strategy",
		}, []string{"strategy"}),
		SnapshotsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "snapshots_appended_total",
			Help:      "Total number of position snapshots appended",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastEventTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_timestamp",
			Help:      "Block timestamp of the last processed event",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
