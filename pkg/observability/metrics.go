package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the search service.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Tree metrics
	TreesBuilt      prometheus.Counter
	BuildDuration   prometheus.Histogram
	TreeCardinality *prometheus.GaugeVec
	TreeDepth       *prometheus.GaugeVec

	// Search metrics
	SearchesTotal  *prometheus.CounterVec
	SearchLatency  *prometheus.HistogramVec
	SearchHitCount prometheus.Histogram

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registerer.
// A nil registerer uses the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entropic_requests_total",
				Help: "Total number of requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "entropic_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entropic_request_errors_total",
				Help: "Total number of request errors by method and error type",
			},
			[]string{"method", "error_type"},
		),

		TreesBuilt: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "entropic_trees_built_total",
				Help: "Total number of partition trees built",
			},
		),
		BuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "entropic_build_duration_seconds",
				Help:    "Tree build duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		TreeCardinality: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "entropic_tree_cardinality",
				Help: "Number of items in each dataset's tree",
			},
			[]string{"dataset"},
		),
		TreeDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "entropic_tree_depth",
				Help: "Maximum cluster depth of each dataset's tree",
			},
			[]string{"dataset"},
		),

		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entropic_searches_total",
				Help: "Total number of search requests by algorithm",
			},
			[]string{"algorithm"},
		),
		SearchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "entropic_search_latency_seconds",
				Help:    "Search request latency in seconds by algorithm",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12),
			},
			[]string{"algorithm"},
		),
		SearchHitCount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "entropic_search_hit_count",
				Help:    "Number of hits returned per search request",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),

		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "entropic_cache_hits_total",
				Help: "Total number of search cache hits",
			},
		),
		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "entropic_cache_misses_total",
				Help: "Total number of search cache misses",
			},
		),
	}
}

// RecordRequest records a completed request with its duration.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRequestError records a failed request by error type.
func (m *Metrics) RecordRequestError(method, errorType string) {
	m.RequestErrors.WithLabelValues(method, errorType).Inc()
}

// RecordBuild records one completed tree build.
func (m *Metrics) RecordBuild(dataset string, cardinality, depth int, duration time.Duration) {
	m.TreesBuilt.Inc()
	m.BuildDuration.Observe(duration.Seconds())
	m.TreeCardinality.WithLabelValues(dataset).Set(float64(cardinality))
	m.TreeDepth.WithLabelValues(dataset).Set(float64(depth))
}

// RecordSearch records one completed search request; hits is the total over
// all of the request's queries.
func (m *Metrics) RecordSearch(algorithm string, hits int, duration time.Duration) {
	m.SearchesTotal.WithLabelValues(algorithm).Inc()
	m.SearchLatency.WithLabelValues(algorithm).Observe(duration.Seconds())
	m.SearchHitCount.Observe(float64(hits))
}
