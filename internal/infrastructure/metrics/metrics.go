package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ratehub/internal/application"
)

var _ application.UpdateObserver = (*UpdaterMetrics)(nil)

// UpdaterMetrics exports update cycle outcomes.
type UpdaterMetrics struct {
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	SourceFetched     *prometheus.GaugeVec
	SourceErrorsTotal *prometheus.CounterVec
	SuccessfulSources prometheus.Gauge
	TotalRates        prometheus.Gauge
	Pairs             prometheus.Gauge
	HistoryFailed     prometheus.Counter
	LastSuccess       prometheus.Gauge
}

func NewUpdaterMetrics(reg prometheus.Registerer) *UpdaterMetrics {
	f := promauto.With(reg)
	return &UpdaterMetrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rates_update_runs_total",
				Help: "Update cycles by result",
			},
			[]string{"result"},
		),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rates_update_duration_seconds",
			Help:    "Wall time of an update cycle",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		SourceFetched: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rates_source_fetched",
				Help: "Rates returned by each source in the last cycle",
			},
			[]string{"source"},
		),
		SourceErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rates_source_errors_total",
				Help: "Source calls that failed or panicked",
			},
			[]string{"source"},
		),
		SuccessfulSources: f.NewGauge(prometheus.GaugeOpts{
			Name: "rates_successful_sources",
			Help: "Sources that returned data in the last cycle",
		}),
		TotalRates: f.NewGauge(prometheus.GaugeOpts{
			Name: "rates_total_fetched",
			Help: "Rates returned by all sources in the last cycle, before merging",
		}),
		Pairs: f.NewGauge(prometheus.GaugeOpts{
			Name: "rates_snapshot_pairs",
			Help: "Pairs in the last saved snapshot",
		}),
		HistoryFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "rates_history_append_failures_total",
			Help: "History records that could not be appended",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "rates_last_success_timestamp_seconds",
			Help: "Unix time of the last successful cycle",
		}),
	}
}

func (m *UpdaterMetrics) ObserveUpdate(r application.UpdateReport) {
	result := "failure"
	if r.Success {
		result = "success"
		m.Pairs.Set(float64(r.Pairs))
		m.LastSuccess.Set(float64(r.StartedAt.Add(r.Duration).Unix()))
	}
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunDuration.Observe(r.Duration.Seconds())
	m.SuccessfulSources.Set(float64(r.SuccessfulSources))
	m.TotalRates.Set(float64(r.TotalRates))
	m.HistoryFailed.Add(float64(r.HistoryFailed))
	for _, s := range r.Sources {
		m.SourceFetched.WithLabelValues(s.Name).Set(float64(s.Fetched))
		if s.Error != "" {
			m.SourceErrorsTotal.WithLabelValues(s.Name).Inc()
		}
	}
}
