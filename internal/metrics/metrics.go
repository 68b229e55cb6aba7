// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImportJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "petshop",
		Name:      "import_jobs_total",
		Help:      "Import jobs by final outcome (completed, retried, failed).",
	}, []string{"outcome"})

	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "petshop",
		Name:      "import_rows_total",
		Help:      "Imported spreadsheet rows by outcome (inserted, failed).",
	}, []string{"outcome"})

	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "petshop",
		Name:      "import_job_duration_seconds",
		Help:      "Wall time spent processing one import job.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	OutboxPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "petshop",
		Name:      "outbox_events_published_total",
		Help:      "Domain events delivered to Kafka.",
	})

	OutboxErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "petshop",
		Name:      "outbox_publish_errors_total",
		Help:      "Failed outbox publish batches.",
	})
)
