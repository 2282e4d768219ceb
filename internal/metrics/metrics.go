// Package metrics defines the collector's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commlogs_ingest_events_total",
			Help: "Total number of events handled by the ingest endpoint",
		},
		[]string{"status"},
	)

	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commlogs_ingest_batches_total",
			Help: "Total number of ingestion batches by outcome",
		},
		[]string{"status"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "commlogs_writer_queue_depth",
			Help: "Batches currently waiting in the async write queue",
		},
	)

	InsertDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "commlogs_writer_insert_duration_seconds",
			Help:    "Duration of batch insert transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	InsertRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commlogs_writer_insert_retries_total",
			Help: "Total number of batch insert retry attempts",
		},
	)

	InsertFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commlogs_writer_insert_failures_total",
			Help: "Batches that exhausted all insert attempts",
		},
	)

	DLQWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commlogs_writer_dlq_writes_total",
			Help: "Failed batches handed to the dead-letter queue",
		},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commlogs_ingest_rate_limit_hits_total",
			Help: "Ingest requests rejected by the rate limiter",
		},
	)
)
