// Package observability provides tracing and application metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parley_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// MessageThroughput counts messages processed per conversation type and message type.
	MessageThroughput = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_message_throughput_total",
		Help: "Total number of chat messages processed",
	}, []string{"conversation_type", "message_type"})

	// WebSocketEventsTotal counts realtime events pushed to clients by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_websocket_events_total",
		Help: "Total realtime events pushed by event type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts events dropped because a client's send
	// buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_websocket_backpressure_drops_total",
		Help: "Total number of realtime events dropped due to backpressure",
	}, []string{"scope", "reason"})

	// RoomSubscriptions is the gauge of socket-to-room subscriptions.
	RoomSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parley_room_subscriptions",
		Help: "Number of live socket subscriptions per room kind",
	}, []string{"kind"})

	// UnreadReconciliations counts unread counter reconciliation runs by outcome.
	UnreadReconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_unread_reconciliations_total",
		Help: "Total unread counter reconciliations by outcome",
	}, []string{"outcome"})
)

// DatabaseMetrics wraps recording of query latency.
type DatabaseMetrics struct{}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics() *DatabaseMetrics {
	return &DatabaseMetrics{}
}

// ObserveQuery records the latency of a database query.
func (*DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// RecordMessage increments message throughput counters.
func RecordMessage(conversationType, messageType string) {
	MessageThroughput.WithLabelValues(conversationType, messageType).Inc()
}

// RecordWebSocketEvent increments the realtime events counter for the event type.
func RecordWebSocketEvent(eventType string) {
	WebSocketEventsTotal.WithLabelValues(eventType).Inc()
}
