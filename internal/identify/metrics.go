package identify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricRankingRequestsTotal   = "ranking_requests_total"
	MetricRankingDuration        = "ranking_duration_seconds"
	MetricRankingCandidateSet    = "ranking_candidate_set_size"
	MetricRankingDegenerateTotal = "ranking_degenerate_weights_total"
	MetricRankingSkippedTotal    = "ranking_skipped_candidates_total"
)

// Outcome labels.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeNoCandidates = "no_candidates"
	OutcomeNoSignals    = "no_signals"
	OutcomeCanceled     = "canceled"
	OutcomeError        = "error"
)

// Skip reasons.
const (
	SkipNoTextEmbedding   = "no_text_embedding"
	SkipDimensionMismatch = "dimension_mismatch"
	SkipInvalidSignal     = "invalid_signal"
)

// Metrics holds the ranking pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	setSize    *prometheus.HistogramVec
	degenerate *prometheus.CounterVec
	skipped    *prometheus.CounterVec
}

// NewMetrics creates unregistered ranking metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingRequestsTotal,
				Help: "Total number of ranking passes by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRankingDuration,
				Help:    "Duration of ranking passes in seconds, including retrieval",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"mode"},
		),
		setSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRankingCandidateSet,
				Help:    "Number of candidates scored per ranking pass",
				Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100},
			},
			[]string{"mode"},
		),
		degenerate: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingDegenerateTotal,
				Help: "Total number of ranking passes run with all weights zero",
			},
			[]string{"mode"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingSkippedTotal,
				Help: "Total number of retrieved candidates dropped before scoring, by reason",
			},
			[]string{"reason"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.duration, m.setSize, m.degenerate, m.skipped}
}

func (m *Metrics) observePass(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(mode, outcome).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *Metrics) observeSetSize(mode string, n int) {
	if m == nil {
		return
	}
	m.setSize.WithLabelValues(mode).Observe(float64(n))
}

func (m *Metrics) incDegenerate(mode string) {
	if m == nil {
		return
	}
	m.degenerate.WithLabelValues(mode).Inc()
}

func (m *Metrics) incSkipped(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}
