// Package metrics exposes training progress as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trainer holds the collectors updated by a training run. A nil *Trainer
// is valid and records nothing.
type Trainer struct {
	Iterations     prometheus.Counter
	LogLikelihood  prometheus.Gauge
	HeldOut        prometheus.Gauge
	Sequences      *prometheus.CounterVec
	IterationTime  prometheus.Histogram
	WordsConverged prometheus.Gauge
}

// NewTrainer creates the collectors and registers them with reg.
func NewTrainer(reg prometheus.Registerer) *Trainer {
	t := &Trainer{
		Iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wordhmm_iterations_total",
			Help: "Completed EM iterations",
		}),
		LogLikelihood: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wordhmm_log_likelihood",
			Help: "Total training log-likelihood of the last iteration",
		}),
		HeldOut: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wordhmm_heldout_log_likelihood",
			Help: "Total held-out log-likelihood of the last iteration",
		}),
		Sequences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wordhmm_sequences_total",
			Help: "Sequences processed, by outcome",
		}, []string{"outcome"}),
		IterationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wordhmm_iteration_duration_seconds",
			Help:    "Wall time of one EM iteration",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		WordsConverged: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wordhmm_words_converged",
			Help: "Word models in a final state",
		}),
	}
	reg.MustRegister(t.Iterations, t.LogLikelihood, t.HeldOut, t.Sequences, t.IterationTime, t.WordsConverged)
	return t
}

// Sequence outcomes.
const (
	OutcomeAccumulated = "accumulated"
	OutcomeSkipped     = "skipped"
)

// ObserveIteration records one finished iteration.
func (t *Trainer) ObserveIteration(ll, heldOut, seconds float64, accumulated, skipped, final int) {
	if t == nil {
		return
	}
	t.Iterations.Inc()
	t.LogLikelihood.Set(ll)
	t.HeldOut.Set(heldOut)
	t.IterationTime.Observe(seconds)
	t.Sequences.WithLabelValues(OutcomeAccumulated).Add(float64(accumulated))
	t.Sequences.WithLabelValues(OutcomeSkipped).Add(float64(skipped))
	t.WordsConverged.Set(float64(final))
}

// SetFinal records the number of word models in a final state.
func (t *Trainer) SetFinal(n int) {
	if t == nil {
		return
	}
	t.WordsConverged.Set(float64(n))
}

// Handler serves the collectors of g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
