// Package hmm implements discrete-observation hidden Markov models whose
// state graph mixes emitting arcs with zero-duration null arcs.
//
// Emissions are conditioned on the destination state of an emitting arc:
// a symbol is produced on arrival. Emit is therefore indexed
// [symbol][destination].
package hmm

import (
	"fmt"
	"math"

	"github.com/ieee0824/wordhmm-go/internal/mathutil"
	"gonum.org/v1/gonum/floats"
)

// Model is a state graph with emitting transitions, destination-keyed
// emissions and a sparse set of null arcs. It owns the accumulators that
// the forward-backward pass writes into.
type Model struct {
	Name    string
	States  int
	Outputs int
	Trans   mathutil.Mat // [from][to] emitting transition probabilities
	Emit    mathutil.Mat // [symbol][to] emission probabilities

	null    SparseArcs
	pinned  map[Arc]bool
	order   []int
	nullOut [][]nullEdge
	stale   bool

	// unreached holds the states that received no expected arrivals in the
	// last re-estimation; their emission columns are left at zero.
	unreached map[int]bool

	stats *Stats
}

// New creates a model with all probabilities set to zero.
func New(name string, states, outputs int) *Model {
	return &Model{
		Name:    name,
		States:  states,
		Outputs: outputs,
		Trans:   mathutil.NewMat(states, states),
		Emit:    mathutil.NewMat(outputs, states),
		null:    make(SparseArcs),
		pinned:  make(map[Arc]bool),
		stale:   true,

		unreached: make(map[int]bool),
		stats:     newStats(outputs, states),
	}
}

// SetTransitions copies a States x States matrix into the model.
func (m *Model) SetTransitions(trans mathutil.Mat) error {
	if len(trans) != m.States {
		return fmt.Errorf("transitions: %d rows for %d states: %w", len(trans), m.States, ErrShape)
	}
	for i, row := range trans {
		if len(row) != m.States {
			return fmt.Errorf("transitions: row %d has %d columns: %w", i, len(row), ErrShape)
		}
		copy(m.Trans[i], row)
	}
	return nil
}

// SetEmissions copies an Outputs x States matrix into the model.
func (m *Model) SetEmissions(emit mathutil.Mat) error {
	if len(emit) != m.Outputs {
		return fmt.Errorf("emissions: %d rows for %d symbols: %w", len(emit), m.Outputs, ErrShape)
	}
	for o, row := range emit {
		if len(row) != m.States {
			return fmt.Errorf("emissions: row %d has %d columns: %w", o, len(row), ErrShape)
		}
		copy(m.Emit[o], row)
	}
	return nil
}

// SetNull sets the probability of the null arc from->to. A zero probability
// removes the arc. The topological order becomes stale and is recomputed
// before the next recursion.
func (m *Model) SetNull(from, to int, p float64) error {
	if from < 0 || from >= m.States || to < 0 || to >= m.States {
		return fmt.Errorf("null arc %d->%d: %w", from, to, ErrStateRange)
	}
	if p == 0 {
		delete(m.null, Arc{from, to})
	} else {
		m.null[Arc{from, to}] = p
	}
	m.stale = true
	return nil
}

// NullProb returns the probability of the null arc from->to, or zero.
func (m *Model) NullProb(from, to int) float64 {
	return m.null.Get(from, to)
}

// NullArcs returns a copy of the null arcs.
func (m *Model) NullArcs() SparseArcs {
	return m.null.Clone()
}

// PinArc marks the emitting arc from->to as fixed: re-estimation keeps its
// probability and shares the rest of the row among the other arcs.
func (m *Model) PinArc(from, to int) {
	m.pinned[Arc{from, to}] = true
}

// Pinned reports whether the emitting arc from->to is fixed.
func (m *Model) Pinned(from, to int) bool {
	return m.pinned[Arc{from, to}]
}

// PinnedArcs returns the fixed emitting arcs in order.
func (m *Model) PinnedArcs() []Arc {
	s := make(SparseArcs, len(m.pinned))
	for a := range m.pinned {
		s[a] = 1
	}
	return s.Arcs()
}

// Clone returns a deep copy with fresh, zeroed accumulators.
func (m *Model) Clone() *Model {
	c := &Model{
		Name:    m.Name,
		States:  m.States,
		Outputs: m.Outputs,
		Trans:   mathutil.CloneMat(m.Trans),
		Emit:    mathutil.CloneMat(m.Emit),
		null:    m.null.Clone(),
		pinned:  make(map[Arc]bool, len(m.pinned)),
		stale:   true,

		unreached: make(map[int]bool, len(m.unreached)),
		stats:     newStats(m.Outputs, m.States),
	}
	for a := range m.pinned {
		c.pinned[a] = true
	}
	for j := range m.unreached {
		c.unreached[j] = true
	}
	return c
}

// Stats returns the model's own accumulators.
func (m *Model) Stats() *Stats {
	return m.stats
}

// NewStats returns empty accumulators shaped for m, for use by a worker
// that merges them back with Merge.
func (m *Model) NewStats() *Stats {
	return newStats(m.Outputs, m.States)
}

// Merge adds partial accumulators into the model's own.
func (m *Model) Merge(s *Stats) {
	m.stats.Merge(s)
}

// ResetAccumulators zeroes the arc and null-arc counts.
func (m *Model) ResetAccumulators() {
	m.stats.Reset()
}

// Validate checks that every state's emitting and null mass sums to one and
// that every state entered by an emitting arc has a normalized emission
// column. States reported by UnreachedStates are exempt from the column
// check.
func (m *Model) Validate() error {
	nullSum := make([]float64, m.States)
	for a, p := range m.null {
		nullSum[a.From] += p
	}
	for i, row := range m.Trans {
		sum := floats.Sum(row) + nullSum[i]
		if math.IsNaN(sum) || math.Abs(sum-1) > Tolerance {
			return &NormalizationError{Model: m.Name, Kind: TransitionRow, Index: i, Got: sum, Want: 1}
		}
	}
	for j := 0; j < m.States; j++ {
		if !m.entered(j) || m.unreached[j] {
			continue
		}
		sum := mathutil.ColSum(m.Emit, j)
		if math.IsNaN(sum) || math.Abs(sum-1) > Tolerance {
			return &NormalizationError{Model: m.Name, Kind: EmissionColumn, Index: j, Got: sum, Want: 1}
		}
	}
	return nil
}

// entered reports whether any emitting arc with nonzero probability ends in j.
func (m *Model) entered(j int) bool {
	for i := range m.Trans {
		if m.Trans[i][j] > 0 {
			return true
		}
	}
	return false
}

// UnreachedStates lists the states that received no expected arrivals in
// the last re-estimation, in ascending order. Their emission columns are
// zero rather than renormalized.
func (m *Model) UnreachedStates() []int {
	var out []int
	for j := 0; j < m.States; j++ {
		if m.unreached[j] {
			out = append(out, j)
		}
	}
	return out
}

func (m *Model) checkSequence(obs []int) error {
	if len(obs) == 0 {
		return ErrEmptySequence
	}
	for t, o := range obs {
		if o < 0 || o >= m.Outputs {
			return fmt.Errorf("symbol %d at position %d: %w", o, t, ErrSymbolRange)
		}
	}
	return nil
}

func (m *Model) checkDist(name string, p []float64) error {
	if p != nil && len(p) != m.States {
		return fmt.Errorf("%s distribution has %d entries for %d states: %w", name, len(p), m.States, ErrShape)
	}
	return nil
}
