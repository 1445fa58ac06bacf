// Package wordhmm trains discrete hidden Markov models for isolated word
// recognition. A word model chains a leading silence sub-model, one
// sub-model per letter and a trailing silence sub-model; see the compose,
// hmm and train packages for the pieces.
package wordhmm

import (
	"github.com/ieee0824/wordhmm-go/compose"
	"github.com/ieee0824/wordhmm-go/hmm"
)

// Engine exposes the composite builder and the forward-backward passes
// over one prototype inventory.
type Engine struct {
	Inventory *compose.Inventory
	logDomain bool
	initial   []float64
	terminal  []float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogDomain routes forward-backward and scoring through the
// log-domain recursions instead of the scaled ones.
func WithLogDomain() Option {
	return func(e *Engine) {
		e.logDomain = true
	}
}

// WithInitial sets the initial state distribution. The default is uniform.
func WithInitial(p []float64) Option {
	return func(e *Engine) {
		e.initial = p
	}
}

// WithTerminal sets the terminal weights. The default is all ones.
func WithTerminal(p []float64) Option {
	return func(e *Engine) {
		e.terminal = p
	}
}

// New creates an Engine over inv.
func New(inv *compose.Inventory, opts ...Option) *Engine {
	e := &Engine{Inventory: inv}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildCompositeModel assembles the word model for a spelling.
func (e *Engine) BuildCompositeModel(letters []compose.Letter) (*hmm.Model, error) {
	return e.Inventory.Build(letters)
}

func (e *Engine) options() []hmm.Option {
	var opts []hmm.Option
	if e.initial != nil {
		opts = append(opts, hmm.WithInitial(e.initial))
	}
	if e.terminal != nil {
		opts = append(opts, hmm.WithTerminal(e.terminal))
	}
	return opts
}

// RunForwardBackward runs both passes over seq and adds the arc
// posteriors into m's accumulators. The trellis carries the forward and
// backward tables, the per-stage scale factors (scaled engine only) and
// the sequence log-likelihood.
func (e *Engine) RunForwardBackward(m *hmm.Model, seq []int) (*hmm.Trellis, error) {
	if e.logDomain {
		return m.ForwardBackwardLog(seq, e.options()...)
	}
	return m.ForwardBackward(seq, e.options()...)
}

// Reestimate applies the M-step to m.
func (e *Engine) Reestimate(m *hmm.Model) error {
	return m.Reestimate()
}

// LogLikelihood scores seq without touching m's accumulators.
func (e *Engine) LogLikelihood(m *hmm.Model, seq []int) (float64, error) {
	if e.logDomain {
		return m.LogLikelihoodLog(seq, e.options()...)
	}
	return m.LogLikelihood(seq, e.options()...)
}
