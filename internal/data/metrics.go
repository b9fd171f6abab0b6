// internal/data/metrics.go
package data

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transaction metrics, exported on the /debug/metrics endpoint. The outcome
// label is "commit" or "rollback"; retries count serialization-aborted
// interactions the operator chose to run again.
var (
	txOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "biblioteca",
		Subsystem: "db",
		Name:      "transactions_total",
		Help:      "Database transactions by outcome.",
	}, []string{"outcome"})

	txRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "biblioteca",
		Subsystem: "db",
		Name:      "serialization_retries_total",
		Help:      "Confirmed retries of serialization-aborted interactions.",
	})

	txDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "biblioteca",
		Subsystem: "db",
		Name:      "transaction_duration_seconds",
		Help:      "Wall time from BeginTx to commit or rollback.",
		Buckets:   prometheus.DefBuckets,
	})
)

func observeTx(outcome string, start time.Time) {
	txOutcomes.WithLabelValues(outcome).Inc()
	txDuration.Observe(time.Since(start).Seconds())
}
