package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal   *prometheus.CounterVec
	cacheHitsTotal *prometheus.CounterVec
	predictions    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axpredict_fetches_total",
				Help: "Total number of candle fetches per source and outcome",
			},
			[]string{"source", "outcome"},
		),
		cacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axpredict_cache_hits_total",
				Help: "Total number of candle cache hits per source",
			},
			[]string{"source"},
		),
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axpredict_predictions_total",
				Help: "Total number of predictions per timeframe, label and strategy",
			},
			[]string{"timeframe", "label", "strategy"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axpredict_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		fetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "axpredict_fetch_duration_seconds",
				Help:    "Duration of upstream candle fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
	}
}

// RecordFetch records a candle fetch attempt for a source.
// Outcome is one of "ok", "empty", "error".
func (r *Recorder) RecordFetch(source, outcome string) {
	r.fetchesTotal.WithLabelValues(source, outcome).Inc()
}

// RecordCacheHit records a candle cache hit.
func (r *Recorder) RecordCacheHit(source string) {
	r.cacheHitsTotal.WithLabelValues(source).Inc()
}

// RecordPrediction records an emitted prediction.
func (r *Recorder) RecordPrediction(timeframe, label, strategy string) {
	r.predictions.WithLabelValues(timeframe, label, strategy).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// ObserveFetchDuration records the latency of one upstream fetch.
func (r *Recorder) ObserveFetchDuration(source string, seconds float64) {
	r.fetchDuration.WithLabelValues(source).Observe(seconds)
}
