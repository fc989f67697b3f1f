package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// school-data batch pipeline.
type Metrics struct {
	// Source API metrics.
	APIRequests        *prometheus.CounterVec   // labels: resource={catalog,details,statistics_gr,statistics_gy}, outcome={success,not_found,error}
	APIRetries         prometheus.Counter
	APIRequestDuration *prometheus.HistogramVec // labels: resource

	// Fetch phase metrics.
	CatalogPages  prometheus.Counter
	UnitsFetched  prometheus.Counter
	UnitsFiltered prometheus.Counter
	BatchDuration prometheus.Histogram
	FetchRunning  prometheus.Gauge

	// Process phase metrics.
	SchoolsProcessed   *prometheus.CounterVec // labels: category
	ProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "school_etl",
			Name:      "api_requests_total",
			Help:      "Skolverket API requests by resource and outcome.",
		}, []string{"resource", "outcome"}),
		APIRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "school_etl",
			Name:      "api_retries_total",
			Help:      "Total request retries after transient failures or rate limiting.",
		}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "school_etl",
			Name:      "api_request_duration_seconds",
			Help:      "Skolverket API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"resource"}),
		CatalogPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "school_etl",
			Name:      "catalog_pages_total",
			Help:      "Listing pages fetched from the school-unit catalog.",
		}),
		UnitsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "school_etl",
			Name:      "units_fetched_total",
			Help:      "School units whose detail and statistics fetches completed.",
		}),
		UnitsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "school_etl",
			Name:      "units_filtered_total",
			Help:      "Listed units discarded before fetching (abroad or unusable coordinates).",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "school_etl",
			Name:      "batch_duration_seconds",
			Help:      "Duration of one concurrent detail/statistics fetch batch.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FetchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "school_etl",
			Name:      "fetch_running",
			Help:      "1 while the fetch phase is active, 0 otherwise.",
		}),
		SchoolsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "school_etl",
			Name:      "schools_processed_total",
			Help:      "Normalized schools written to the snapshot, by category.",
		}, []string{"category"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "school_etl",
			Name:      "processing_duration_seconds",
			Help:      "Duration of a complete normalization run over the raw snapshot.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.APIRequests,
		m.APIRetries,
		m.APIRequestDuration,
		m.CatalogPages,
		m.UnitsFetched,
		m.UnitsFiltered,
		m.BatchDuration,
		m.FetchRunning,
		m.SchoolsProcessed,
		m.ProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		APIRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "school_etl", Name: "api_requests_total"}, []string{"resource", "outcome"}),
		APIRetries:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "school_etl", Name: "api_retries_total"}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "school_etl", Name: "api_request_duration_seconds"}, []string{"resource"}),
		CatalogPages:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "school_etl", Name: "catalog_pages_total"}),
		UnitsFetched:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "school_etl", Name: "units_fetched_total"}),
		UnitsFiltered:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "school_etl", Name: "units_filtered_total"}),
		BatchDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "school_etl", Name: "batch_duration_seconds"}),
		FetchRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "school_etl", Name: "fetch_running"}),
		SchoolsProcessed:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "school_etl", Name: "schools_processed_total"}, []string{"category"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "school_etl", Name: "processing_duration_seconds"}),
	}
}
