package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rikitraki/trackapi/internal/usecase/location"
)

// Store and location search Prometheus metrics.
var (
	StoreQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rikitraki",
			Name:      "store_queries_total",
			Help:      "Total number of index queries sent to the store",
		},
		[]string{"index", "status"},
	)

	StoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rikitraki",
			Name:      "store_query_duration_seconds",
			Help:      "Store query duration in seconds, per call (a pipelined batch counts once)",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"index"},
	)

	LocationCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rikitraki",
			Name:      "location_candidates",
			Help:      "Distinct tracks gathered per location search before windowing",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	LocationResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rikitraki",
			Name:      "location_results",
			Help:      "Tracks returned per location search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		},
		[]string{"mode", "branch"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers store and location metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(StoreQueriesTotal)
	prometheus.MustRegister(StoreQueryDuration)
	prometheus.MustRegister(LocationCandidates)
	prometheus.MustRegister(LocationResults)
	searchMetricsRegistered = true
}

// LocationRecorder feeds location search statistics into Prometheus.
type LocationRecorder struct{}

// ObserveLocationSearch implements location.Recorder.
func (LocationRecorder) ObserveLocationSearch(mode location.Mode, branch location.Branch, candidates, results int) {
	LocationCandidates.Observe(float64(candidates))
	LocationResults.WithLabelValues(string(mode), string(branch)).Observe(float64(results))
}
