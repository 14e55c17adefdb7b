package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Broadcast fan-out metrics.
var (
	// ActiveClients tracks the number of currently registered WebSocket clients.
	ActiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_active_clients",
			Help: "Number of currently connected WebSocket clients",
		},
	)

	// MessagesDelivered counts per-recipient message deliveries.
	MessagesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_messages_delivered_total",
			Help: "Total messages delivered to clients (one per recipient)",
		},
	)

	// BytesSent counts payload bytes written to client send buffers.
	BytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_bytes_sent_total",
			Help: "Total broadcast payload bytes sent to clients",
		},
	)

	// QueueDepth tracks the current pending-queue length.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_queue_depth",
			Help: "Current number of messages awaiting the next flush tick",
		},
	)

	// MessagesDropped counts messages dropped before delivery, by reason
	// (queue_full, displaced).
	MessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_messages_dropped_total",
			Help: "Total messages dropped before delivery, by reason",
		},
		[]string{"reason"},
	)

	// ClientsEvicted counts forced client removals, by reason
	// (slow_consumer, idle, ping_failed, shutdown).
	ClientsEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_clients_evicted_total",
			Help: "Total clients forcibly removed, by reason",
		},
		[]string{"reason"},
	)

	// FlushBatchSize observes how many messages each flush tick delivered.
	FlushBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_flush_batch_size",
			Help:    "Messages delivered per flush tick",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	// InvariantViolations counts internal invariant failures such as a
	// duplicate registry add. These abort the operation, never the process.
	InvariantViolations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_invariant_violations_total",
			Help: "Internal invariant violations detected and recovered",
		},
	)
)

// Upstream ingestion metrics.
var (
	// IngestEvents counts consumed upstream events by topic and status
	// (ok, malformed).
	IngestEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Upstream events consumed, by topic and status",
		},
		[]string{"topic", "status"},
	)

	// IngestErrors counts consumer read errors.
	IngestErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_read_errors_total",
			Help: "Kafka consumer read errors",
		},
	)
)
