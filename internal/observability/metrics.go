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
	// Search metrics
	ListingsFetched prometheus.Counter
	FetchErrors     *prometheus.CounterVec

	// Classification metrics
	ListingsRejected     prometheus.Counter
	ClassificationErrors prometheus.Counter

	// Dispatch metrics
	NotificationsSent    *prometheus.CounterVec
	DispatchErrors       prometheus.Counter
	DuplicatesSuppressed prometheus.Counter

	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	LastCycleUnix prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dealwatch"
	}

	return &Metrics{
		ListingsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "listings_fetched_total",
			Help:      "Total number of candidate listings fetched",
		}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "fetch_errors_total",
			Help:      "Total number of per-keyword fetch failures by kind",
		}, []string{"kind"}),

		ListingsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "listings_rejected_total",
			Help:      "Total number of listings rejected by the acceptable-price gate",
		}),
		ClassificationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "classification_errors_total",
			Help:      "Total number of listings dropped for malformed price data",
		}),

		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications dispatched by tier",
		}, []string{"tier"}),
		DispatchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "dispatch_errors_total",
			Help:      "Total number of failed webhook dispatches",
		}),
		DuplicatesSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duplicates_suppressed_total",
			Help:      "Total number of notifications suppressed by the dedup ledger",
		}),

		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "cycles_total",
			Help:      "Total number of completed poll cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "cycle_duration_seconds",
			Help:      "Poll cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		LastCycleUnix: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix timestamp of the last completed cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
