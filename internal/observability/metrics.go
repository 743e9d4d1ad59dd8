package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the metasearch service, grouped by
// subsystem: connector searches, upstream source requests, search backend operations,
// indexing and the public HTTP API. All collectors are registered via promauto.
type Metrics struct {
	// SearchesStarted counts connector searches initiated, labeled by source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts connector searches that returned, labeled by source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts connector searches that degraded to an empty result, labeled by source and reason.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes connector search duration in seconds, labeled by source.
	SearchDuration *prometheus.HistogramVec

	// RecordsPerSearch observes records returned per connector search, labeled by source.
	RecordsPerSearch *prometheus.HistogramVec

	// SourceRequestsTotal counts HTTP requests to upstream repository APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestDuration observes upstream request duration in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts 429 responses from upstream APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// BackendRequestsTotal counts search backend operations, labeled by backend and operation.
	BackendRequestsTotal *prometheus.CounterVec

	// BackendRequestsFailed counts failed search backend operations, labeled by backend and operation.
	BackendRequestsFailed *prometheus.CounterVec

	// BackendRequestDuration observes search backend operation duration in seconds.
	BackendRequestDuration *prometheus.HistogramVec

	// RecordsIndexed counts records upserted into the index, labeled by backend.
	RecordsIndexed *prometheus.CounterVec

	// PaperLookups counts paper detail resolutions, labeled by the path that answered (index, connector, miss).
	PaperLookups *prometheus.CounterVec

	// HTTPRequests counts API requests, labeled by route and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration observes API request duration in seconds, labeled by route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Connector searches
		SearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_started_total",
			Help:      "Total number of connector searches started",
		}, []string{"source"}),
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_completed_total",
			Help:      "Total number of connector searches completed",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_failed_total",
			Help:      "Total number of connector searches that failed and returned no records",
		}, []string{"source", "reason"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_search_duration_seconds",
			Help:      "Duration of connector searches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"source"}),
		RecordsPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_records_per_search",
			Help:      "Number of records returned per connector search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}, []string{"source"}),

		// Upstream sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of HTTP requests to upstream repository APIs",
		}, []string{"source", "endpoint"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of upstream repository API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate-limited responses from upstream repository APIs",
		}, []string{"source"}),

		// Search backend
		BackendRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of search backend operations",
		}, []string{"backend", "operation"}),
		BackendRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_failed_total",
			Help:      "Total number of failed search backend operations",
		}, []string{"backend", "operation"}),
		BackendRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Duration of search backend operations in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"backend", "operation"}),
		RecordsIndexed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_indexed_total",
			Help:      "Total number of records upserted into the search index",
		}, []string{"backend"}),

		// Federation
		PaperLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paper_lookups_total",
			Help:      "Total number of paper detail lookups by resolution path",
		}, []string{"path"}),

		// HTTP API
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		}, []string{"route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// The Record methods are no-ops on a nil *Metrics so components can run without metrics.

// RecordSearchStarted records that a connector search has started.
func (m *Metrics) RecordSearchStarted(source string) {
	if m == nil {
		return
	}
	m.SearchesStarted.WithLabelValues(source).Inc()
}

// RecordSearchCompleted records that a connector search has completed.
func (m *Metrics) RecordSearchCompleted(source string, recordCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.RecordsPerSearch.WithLabelValues(source).Observe(float64(recordCount))
}

// RecordSearchFailed records that a connector search has failed or timed out.
func (m *Metrics) RecordSearchFailed(source, reason string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesFailed.WithLabelValues(source, reason).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceRequest records a request to an upstream repository.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	if m == nil {
		return
	}
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordBackendRequest records a search backend operation and its outcome.
func (m *Metrics) RecordBackendRequest(backend, operation string, durationSeconds float64, err error) {
	if m == nil {
		return
	}
	m.BackendRequestsTotal.WithLabelValues(backend, operation).Inc()
	m.BackendRequestDuration.WithLabelValues(backend, operation).Observe(durationSeconds)
	if err != nil {
		m.BackendRequestsFailed.WithLabelValues(backend, operation).Inc()
	}
}

// RecordRecordsIndexed records records upserted into a backend.
func (m *Metrics) RecordRecordsIndexed(backend string, count int) {
	if m == nil {
		return
	}
	m.RecordsIndexed.WithLabelValues(backend).Add(float64(count))
}

// RecordPaperLookup records which path answered a paper detail lookup.
func (m *Metrics) RecordPaperLookup(path string) {
	if m == nil {
		return
	}
	m.PaperLookups.WithLabelValues(path).Inc()
}

// RecordHTTPRequest records an API request.
func (m *Metrics) RecordHTTPRequest(route, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}
