package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TelemetryAccepted counts telemetry samples that passed reconciliation
	// and were persisted.
	TelemetryAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetgrid_telemetry_accepted_total",
		Help: "Total telemetry samples accepted and persisted.",
	})

	// TelemetryRejected counts telemetry samples rejected before persistence.
	TelemetryRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetgrid_telemetry_rejected_total",
		Help: "Total telemetry samples rejected, by reason.",
	}, []string{"reason"})

	// CommandsProcessed counts operator engine commands by outcome.
	CommandsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetgrid_commands_total",
		Help: "Total operator engine commands processed, by outcome.",
	}, []string{"outcome"})

	// BroadcastErrors counts failed fanout publishes. These never fail the
	// originating request.
	BroadcastErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetgrid_broadcast_errors_total",
		Help: "Total failed fanout publishes after a successful persist.",
	})

	// BusSubscribers tracks the number of live subscriber sessions.
	BusSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetgrid_bus_subscribers",
		Help: "Number of currently registered fanout subscriber sessions.",
	})

	// BusDropped counts updates dropped because a subscriber was too slow.
	BusDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetgrid_bus_dropped_total",
		Help: "Total updates dropped on slow subscriber sessions.",
	})

	// ReconcileLatency observes the full gateway path: lock, reconcile,
	// persist, publish.
	ReconcileLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleetgrid_reconcile_latency_seconds",
		Help:    "Latency of the mutation path per accepted gateway call.",
		Buckets: prometheus.DefBuckets,
	})

	// ArchiveFlushes counts event batches flushed to the object store.
	ArchiveFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetgrid_archive_flushes_total",
		Help: "Total archive batch flushes, by outcome.",
	}, []string{"outcome"})
)
