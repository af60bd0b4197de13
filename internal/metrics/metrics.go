package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "s3notify_events_received_total",
		Help: "Total number of storage events received, labelled by source.",
	}, []string{"source"})

	EventsUnmatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "s3notify_events_unmatched_total",
		Help: "Total number of events that matched no rule.",
	})

	RulesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "s3notify_rules_matched_total",
		Help: "Total number of rule matches, labelled by rule ID.",
	}, []string{"rule"})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "s3notify_deliveries_total",
		Help: "Total number of delivery attempts, labelled by sink kind and status.",
	}, []string{"sink", "status"})

	DeliveriesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "s3notify_deliveries_dropped_total",
		Help: "Total number of deliveries dropped because the rule's delivery queue was full, labelled by rule ID.",
	}, []string{"rule"})

	QueuedDeliveries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "s3notify_queued_deliveries",
		Help: "Deliveries waiting for a worker, labelled by rule ID.",
	}, []string{"rule"})

	DeliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "s3notify_delivery_duration_ms",
		Help:    "Delivery latency in milliseconds, labelled by sink kind.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
	}, []string{"sink"})

	PendingEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "s3notify_pending_events",
		Help: "Events waiting to be evaluated by the dispatcher.",
	})
)
