package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sppredict"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches        *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	modelLoads     *prometheus.CounterVec
	modelLoadTime  prometheus.Histogram
	predictions    *prometheus.CounterVec
	predictLatency prometheus.Histogram
	scorings       *prometheus.CounterVec
	scoreLatency   prometheus.Histogram
	lastPrediction *prometheus.GaugeVec
	errorsTotal    *prometheus.CounterVec
}

// Option configures the Recorder.
type Option func(*options)

type options struct {
	reg prometheus.Registerer
}

// WithRegisterer registers the collectors on reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// New creates a new Prometheus metrics recorder.
func New(opts ...Option) *Recorder {
	o := &options{reg: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(o)
	}
	f := promauto.With(o.reg)

	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "market_fetches_total",
				Help:      "Upstream market data fetches by kind and result",
			},
			[]string{"kind", "result"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "market_fetch_duration_seconds",
				Help:      "Duration of upstream market data fetches",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Market data cache lookups by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		modelLoads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_loads_total",
				Help:      "Model load attempts by result",
			},
			[]string{"result"},
		),
		modelLoadTime: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_load_duration_seconds",
				Help:      "Time spent fetching and decoding the model",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Predictions by result",
			},
			[]string{"result"},
		),
		predictLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prediction_duration_seconds",
				Help:      "End to end prediction latency",
				Buckets:   prometheus.DefBuckets,
			},
		),
		scorings: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_scorings_total",
				Help:      "Model evaluations by result",
			},
			[]string{"result"},
		),
		scoreLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_scoring_duration_seconds",
				Help:      "Time spent evaluating the model on one feature row",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
		lastPrediction: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_prediction",
				Help:      "Last model output per symbol",
			},
			[]string{"symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordFetch(kind, result string, seconds float64) {
	r.fetches.WithLabelValues(kind, result).Inc()
	r.fetchLatency.WithLabelValues(kind).Observe(seconds)
}

func (r *Recorder) RecordCache(kind string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(kind, outcome).Inc()
}

func (r *Recorder) RecordModelLoad(result string, seconds float64) {
	r.modelLoads.WithLabelValues(result).Inc()
	r.modelLoadTime.Observe(seconds)
}

func (r *Recorder) RecordPrediction(result string, seconds float64) {
	r.predictions.WithLabelValues(result).Inc()
	r.predictLatency.Observe(seconds)
}

// RecordScoring records a single model evaluation, including diagnostic ones.
func (r *Recorder) RecordScoring(result string, seconds float64) {
	r.scorings.WithLabelValues(result).Inc()
	r.scoreLatency.Observe(seconds)
}

// RecordLastPrediction records the last model output for a symbol.
func (r *Recorder) RecordLastPrediction(symbol string, value float64) {
	r.lastPrediction.WithLabelValues(symbol).Set(value)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards everything. Used when metrics are disabled and in tests.
type Nop struct{}

func (Nop) RecordFetch(string, string, float64)  {}
func (Nop) RecordCache(string, bool)             {}
func (Nop) RecordModelLoad(string, float64)      {}
func (Nop) RecordPrediction(string, float64)     {}
func (Nop) RecordScoring(string, float64)        {}
func (Nop) RecordLastPrediction(string, float64) {}
func (Nop) RecordError(string)                   {}
