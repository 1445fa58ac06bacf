// Package train runs EM training over a set of composite word models.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ieee0824/wordhmm-go/compose"
	"github.com/ieee0824/wordhmm-go/hmm"
	"github.com/ieee0824/wordhmm-go/internal/logging"
	"github.com/ieee0824/wordhmm-go/internal/metrics"
)

// ErrNoWords is returned when no word model could be composed.
var ErrNoWords = errors.New("train: no word models")

// Word is one word's composite model and its training sequences.
type Word struct {
	Name     string
	Spelling []compose.Letter
	Model    *hmm.Model
	State    State
	Err      error // set when State is Failed

	train   [][]int
	heldOut [][]int
	mu      sync.Mutex
}

// IterationResult summarizes one EM iteration.
type IterationResult struct {
	Iteration     int
	LogLikelihood float64 // total over training sequences, before the M-step
	HeldOut       float64 // total over held-out sequences after the M-step, NaN without held-out data
	Improvement   float64
	Accumulated   int
	Skipped       int
	Duration      time.Duration
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trainer) { t.log = l }
}

// WithMetrics records iterations into m.
func WithMetrics(m *metrics.Trainer) Option {
	return func(t *Trainer) { t.metrics = m }
}

// WithHeldOut scores these per-word sequences after every M-step.
func WithHeldOut(data map[string][][]int) Option {
	return func(t *Trainer) { t.heldOutData = data }
}

// WithSpeller overrides how words are turned into letters.
func WithSpeller(spell func(word string) ([]compose.Letter, error)) Option {
	return func(t *Trainer) { t.spell = spell }
}

// WithIterationHook calls fn after every iteration.
func WithIterationHook(fn func(IterationResult)) Option {
	return func(t *Trainer) { t.hook = fn }
}

// Trainer owns one composite model per word and re-estimates them
// together until the total log-likelihood stops improving.
type Trainer struct {
	cfg   Config
	words []*Word

	log         *slog.Logger
	metrics     *metrics.Trainer
	heldOutData map[string][][]int
	spell       func(string) ([]compose.Letter, error)
	hook        func(IterationResult)

	history []IterationResult
}

// New composes a model for every word in data from inv. A word whose
// spelling cannot be composed is marked Failed; the others are unaffected.
func New(cfg Config, inv *compose.Inventory, data map[string][][]int, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Trainer{
		cfg:   cfg,
		log:   logging.NewNop(),
		spell: compose.Spell,
	}
	for _, opt := range opts {
		opt(t)
	}

	names := make([]string, 0, len(data))
	for w := range data {
		names = append(names, w)
	}
	sort.Strings(names)

	composed := 0
	for _, name := range names {
		w := &Word{Name: name, State: Uninitialized, train: data[name], heldOut: t.heldOutData[name]}
		t.words = append(t.words, w)

		spelling, err := t.spell(name)
		if err == nil {
			w.Spelling = spelling
			w.Model, err = inv.Build(spelling)
		}
		if err != nil {
			w.State, w.Err = Failed, err
			t.log.Warn("compose failed", "word", name, "error", err)
			continue
		}
		w.Model.Name = name
		w.State = Composed
		composed++
		t.log.Debug("composed", "word", name, "states", w.Model.States, "sequences", len(w.train))
	}
	if composed == 0 {
		return nil, ErrNoWords
	}
	return t, nil
}

// Words returns the word models, sorted by name.
func (t *Trainer) Words() []*Word {
	return t.words
}

// Models returns the composed models by word. Failed words are omitted.
func (t *Trainer) Models() map[string]*hmm.Model {
	out := make(map[string]*hmm.Model, len(t.words))
	for _, w := range t.words {
		if w.Model != nil && w.State != Failed {
			out[w.Name] = w.Model
		}
	}
	return out
}

// History returns the results of the iterations run so far.
func (t *Trainer) History() []IterationResult {
	return append([]IterationResult(nil), t.history...)
}

func (t *Trainer) workers() int {
	if t.cfg.Workers > 0 {
		return t.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (t *Trainer) active() []*Word {
	var out []*Word
	for _, w := range t.words {
		if !w.State.Final() && w.Model != nil {
			out = append(out, w)
		}
	}
	return out
}

// Run iterates EM until the total log-likelihood improves by less than
// the configured threshold, the iteration budget is spent or ctx is done.
// Words still training when Run returns normally are marked Converged or
// BudgetExhausted.
func (t *Trainer) Run(ctx context.Context) error {
	for iter := len(t.history) + 1; iter <= t.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(t.active()) == 0 {
			return ErrNoWords
		}

		res, err := t.Step(ctx)
		if err != nil {
			return err
		}
		t.log.Info("iteration",
			"iter", res.Iteration,
			"loglik", res.LogLikelihood,
			"improvement", res.Improvement,
			"heldout", res.HeldOut,
			"skipped", res.Skipped,
			"elapsed", res.Duration,
		)
		if iter > 1 && res.Improvement < t.cfg.ConvergenceThresh {
			t.finish(Converged)
			return nil
		}
	}
	t.finish(BudgetExhausted)
	return nil
}

func (t *Trainer) finish(s State) {
	for _, w := range t.active() {
		w.State = s
		t.log.Debug("word done", "word", w.Name, "state", s, "loglik", w.Model.Stats().LogLikelihood)
		if u := w.Model.UnreachedStates(); len(u) > 0 {
			t.log.Warn("unreached states", "word", w.Name, "states", u)
		}
	}
	t.metrics.SetFinal(t.finalCount())
}

// Step runs one iteration: reset, accumulate every training sequence of
// every active word, then re-estimate each model once all accumulation is
// done.
func (t *Trainer) Step(ctx context.Context) (IterationResult, error) {
	start := time.Now()
	words := t.active()
	for _, w := range words {
		w.Model.ResetAccumulators()
		w.State = Reset
		// Concurrent passes only read the model once the order is current.
		if err := w.Model.TopologicalSort(); err != nil {
			t.fail(w, err)
		}
	}

	acc, skipped, err := t.accumulate(ctx, t.active())
	if err != nil {
		return IterationResult{}, err
	}

	ll := 0.0
	for _, w := range t.active() {
		ll += w.Model.Stats().LogLikelihood
		if err := w.Model.Reestimate(); err != nil {
			t.fail(w, err)
			continue
		}
		w.State = Reestimated
	}

	res := IterationResult{
		Iteration:     len(t.history) + 1,
		LogLikelihood: ll,
		HeldOut:       math.NaN(),
		Improvement:   math.Inf(1),
		Accumulated:   acc,
		Skipped:       skipped,
	}
	if len(t.history) > 0 {
		res.Improvement = ll - t.history[len(t.history)-1].LogLikelihood
	}
	if t.heldOutData != nil {
		if res.HeldOut, err = t.HeldOutLogLikelihood(ctx); err != nil {
			return res, err
		}
	}
	res.Duration = time.Since(start)
	t.history = append(t.history, res)
	t.observe(res)
	if t.hook != nil {
		t.hook(res)
	}
	return res, nil
}

func (t *Trainer) finalCount() int {
	n := 0
	for _, w := range t.words {
		if w.State.Final() {
			n++
		}
	}
	return n
}

func (t *Trainer) observe(res IterationResult) {
	t.metrics.ObserveIteration(res.LogLikelihood, res.HeldOut, res.Duration.Seconds(), res.Accumulated, res.Skipped, t.finalCount())
}

func (t *Trainer) fail(w *Word, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.State == Failed {
		return
	}
	w.State, w.Err = Failed, err
	t.log.Error("word model failed", "word", w.Name, "error", err)
}

// accumulate runs the engine over every training sequence of words. Each
// task fills private statistics that are merged into its word's model
// under the word's lock. It returns after every task has finished.
func (t *Trainer) accumulate(ctx context.Context, words []*Word) (acc, skipped int, err error) {
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers())

	for _, w := range words {
		w := w
		w.State = Accumulating
		for _, chunk := range chunks(w.train, t.workers()) {
			chunk := chunk
			g.Go(func() error {
				stats := w.Model.NewStats()
				a, s := 0, 0
				for _, seq := range chunk {
					if err := ctx.Err(); err != nil {
						return err
					}
					if _, err := t.run(w.Model, stats, seq); err != nil {
						if skippable(err) {
							s++
							t.log.Warn("sequence skipped", "word", w.Name, "len", len(seq), "error", err)
							continue
						}
						t.fail(w, err)
						return nil
					}
					a++
				}
				w.mu.Lock()
				w.Model.Merge(stats)
				w.mu.Unlock()

				mu.Lock()
				acc += a
				skipped += s
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return acc, skipped, err
	}
	return acc, skipped, nil
}

func (t *Trainer) run(m *hmm.Model, stats *hmm.Stats, seq []int) (*hmm.Trellis, error) {
	if t.cfg.Engine == EngineLog {
		return m.AccumulateLog(stats, seq)
	}
	return m.Accumulate(stats, seq)
}

func (t *Trainer) score(m *hmm.Model, seq []int) (float64, error) {
	if t.cfg.Engine == EngineLog {
		return m.LogLikelihoodLog(seq)
	}
	return m.LogLikelihood(seq)
}

// skippable reports whether err concerns a single sequence rather than
// the model.
func skippable(err error) bool {
	var dse *hmm.DegenerateSequenceError
	return errors.As(err, &dse) || errors.Is(err, hmm.ErrEmptySequence)
}

// HeldOutLogLikelihood scores the held-out sequences of every non-failed
// word with the current parameters. Degenerate sequences are skipped.
func (t *Trainer) HeldOutLogLikelihood(ctx context.Context) (float64, error) {
	var mu sync.Mutex
	total := 0.0
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers())
	for _, w := range t.words {
		w := w
		if w.State == Failed || w.Model == nil {
			continue
		}
		for _, chunk := range chunks(w.heldOut, t.workers()) {
			chunk := chunk
			g.Go(func() error {
				sum := 0.0
				for _, seq := range chunk {
					if err := ctx.Err(); err != nil {
						return err
					}
					ll, err := t.score(w.Model, seq)
					if err != nil {
						if skippable(err) {
							continue
						}
						return fmt.Errorf("held-out %q: %w", w.Name, err)
					}
					sum += ll
				}
				mu.Lock()
				total += sum
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total, nil
}

// chunks splits seqs into at most n nearly equal parts.
func chunks(seqs [][]int, n int) [][][]int {
	if len(seqs) == 0 {
		return nil
	}
	if n > len(seqs) {
		n = len(seqs)
	}
	size := (len(seqs) + n - 1) / n
	out := make([][][]int, 0, n)
	for i := 0; i < len(seqs); i += size {
		out = append(out, seqs[i:min(i+size, len(seqs))])
	}
	return out
}
