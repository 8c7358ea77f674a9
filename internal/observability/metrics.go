package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "peak_hunger"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// summary pipeline.
type Metrics struct {
	RecordsRead     prometheus.Counter
	RecordsRejected prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Per-run metrics.
	Runs            *prometheus.CounterVec // labels: outcome={success,error,skipped}
	RunDuration     prometheus.Histogram
	LastSuccess     prometheus.Gauge
	LoadRetries     prometheus.Counter
	SummariesLoaded *prometheus.CounterVec // labels: sink

	// Per-phase results of the last run.
	Peaks        *prometheus.GaugeVec // labels: phase
	MissingPeaks *prometheus.GaugeVec // labels: phase
	Matches      *prometheus.GaugeVec // labels: phase, year

	// Country name lookup metrics.
	CountryLookups        *prometheus.CounterVec // labels: outcome={success,error,empty}
	CountryCache          *prometheus.CounterVec // labels: result={hit,miss}
	CountryLookupDuration prometheus.Histogram
	CountryLookupEnabled  prometheus.Gauge
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      help("Total IPC rows read from the input table."),
		}),
		RecordsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_rejected_total",
			Help:      help("Total IPC rows rejected as malformed."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 while a run is in progress, 0 otherwise."),
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      help("Pipeline runs by outcome."),
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      help("Duration of a complete extract-summarize-load run."),
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      help("Unix time of the last successful run."),
		}),
		LoadRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_retries_total",
			Help:      help("Summary load attempts retried after a failure."),
		}),
		SummariesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_loaded_total",
			Help:      help("Summaries written, by sink."),
		}, []string{"sink"}),
		Peaks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peaks",
			Help:      help("Countries with a peak hunger period in the last run."),
		}, []string{"phase"}),
		MissingPeaks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "missing_peaks",
			Help:      help("Countries without a report in the reference year in the last run."),
		}, []string{"phase"}),
		Matches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "year_matches",
			Help:      help("Countries matched in each comparison year in the last run."),
		}, []string{"phase", "year"}),
		CountryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "country_lookups_total",
			Help:      help("Country name API requests by outcome."),
		}, []string{"outcome"}),
		CountryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "country_cache_total",
			Help:      help("Country name cache lookups by result."),
		}, []string{"result"}),
		CountryLookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "country_lookup_duration_seconds",
			Help:      help("Country name API request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		CountryLookupEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "country_lookup_enabled",
			Help:      help("1 when country name enrichment is enabled, 0 otherwise."),
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.RecordsRead,
		m.RecordsRejected,
		m.PipelineRunning,
		m.Runs,
		m.RunDuration,
		m.LastSuccess,
		m.LoadRetries,
		m.SummariesLoaded,
		m.Peaks,
		m.MissingPeaks,
		m.Matches,
		m.CountryLookups,
		m.CountryCache,
		m.CountryLookupDuration,
		m.CountryLookupEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
