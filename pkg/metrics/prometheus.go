package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	stageLatency    *prometheus.HistogramVec
	outcomes        *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	anomalies       prometheus.Histogram
	cache           *prometheus.CounterVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		stageLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridadvisor_stage_duration_seconds",
				Help:    "Duration of analysis stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridadvisor_analysis_total",
				Help: "Analyses by outcome",
			},
			[]string{"outcome"},
		),
		recommendations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridadvisor_recommendations_total",
				Help: "Recommendations issued by action",
			},
			[]string{"action"},
		),
		anomalies: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gridadvisor_anomalies_per_series",
				Help:    "Readings flagged anomalous per analyzed series",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridadvisor_response_cache_total",
				Help: "Response cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordStage records stage latency in seconds.
func (r *Recorder) RecordStage(stage string, seconds float64) {
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordOutcome counts a finished analysis ("ok" or an error kind).
func (r *Recorder) RecordOutcome(outcome string) {
	r.outcomes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordRecommendation(action string) {
	r.recommendations.WithLabelValues(action).Inc()
}

func (r *Recorder) RecordAnomalies(n int) {
	r.anomalies.Observe(float64(n))
}

// RecordCache counts a cache lookup ("hit", "miss" or "error").
func (r *Recorder) RecordCache(result string) {
	r.cache.WithLabelValues(result).Inc()
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordStage(string, float64) {}
func (Nop) RecordOutcome(string)        {}
func (Nop) RecordRecommendation(string) {}
func (Nop) RecordAnomalies(int)         {}
func (Nop) RecordCache(string)          {}
