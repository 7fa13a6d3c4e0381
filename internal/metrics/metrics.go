// Package metrics records run counters on a private Prometheus registry and
// exports them in the node_exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns one registry per process run
type Recorder struct {
	registry *prometheus.Registry

	scoreDuration *prometheus.HistogramVec
	scoreTotal    *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
	votes         *prometheus.CounterVec
	failures      *prometheus.CounterVec
	generations   *prometheus.CounterVec
	reportValues  *prometheus.GaugeVec
}

// New registers every collector on a fresh registry
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proofvote_entailment_duration_seconds",
				Help:    "Entailment call duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"classifier"},
		),
		scoreTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proofvote_entailment_calls_total",
				Help: "Entailment calls by classifier and status",
			},
			[]string{"classifier", "status"},
		),
		verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proofvote_classifier_verdicts_total",
				Help: "Per-classifier chain verdicts",
			},
			[]string{"classifier", "verdict"},
		),
		votes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proofvote_ensemble_votes_total",
				Help: "Ensemble majority outcomes",
			},
			[]string{"verdict"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proofvote_proof_failures_total",
				Help: "Proofs excluded from a run, by stage",
			},
			[]string{"stage"},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proofvote_generations_total",
				Help: "Proof generation calls by model and status",
			},
			[]string{"model", "status"},
		),
		reportValues: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "proofvote_report_value",
				Help: "Dataset-level metric from the last statistics run",
			},
			[]string{"metric"},
		),
	}

	r.registry.MustRegister(
		r.scoreDuration,
		r.scoreTotal,
		r.verdicts,
		r.votes,
		r.failures,
		r.generations,
		r.reportValues,
	)
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveScore records one entailment call
func (r *Recorder) ObserveScore(classifier string, seconds float64, err error) {
	r.scoreDuration.WithLabelValues(classifier).Observe(seconds)
	r.scoreTotal.WithLabelValues(classifier, status(err)).Inc()
}

// ObserveVerdict records one classifier's verdict on a proof
func (r *Recorder) ObserveVerdict(classifier string, pass bool) {
	r.verdicts.WithLabelValues(classifier, verdict(pass)).Inc()
}

// ObserveVote records the ensemble outcome for a proof
func (r *Recorder) ObserveVote(success bool) {
	r.votes.WithLabelValues(verdict(success)).Inc()
}

// ObserveFailure records a proof excluded at stage
func (r *Recorder) ObserveFailure(stage string) {
	r.failures.WithLabelValues(stage).Inc()
}

// ObserveGeneration records one generation call
func (r *Recorder) ObserveGeneration(model string, err error) {
	r.generations.WithLabelValues(model, status(err)).Inc()
}

// SetReportValue publishes a dataset-level metric
func (r *Recorder) SetReportValue(metric string, value float64) {
	r.reportValues.WithLabelValues(metric).Set(value)
}

// WriteTextfile writes every collected metric to path
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func verdict(pass bool) string {
	if pass {
		return "pass"
	}
	return "fail"
}
