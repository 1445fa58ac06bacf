package hmm

import (
	"gonum.org/v1/gonum/floats"

	"github.com/ieee0824/wordhmm-go/internal/mathutil"
)

// Stats holds the sufficient statistics gathered by forward-backward passes:
// expected emitting-arc usage per symbol and expected null-arc usage.
// Merging is a plain sum, so partial Stats from concurrent workers can be
// combined in any order.
type Stats struct {
	Arc  [][][]float64 // [symbol][from][to]
	Null SparseArcs

	LogLikelihood float64
	Sequences     int
}

func newStats(outputs, states int) *Stats {
	data := make([]float64, outputs*states*states)
	arc := make([][][]float64, outputs)
	for o := range arc {
		arc[o] = make([][]float64, states)
		for i := range arc[o] {
			off := (o*states + i) * states
			arc[o][i] = data[off : off+states]
		}
	}
	return &Stats{Arc: arc, Null: make(SparseArcs)}
}

// Reset zeroes every count.
func (s *Stats) Reset() {
	for o := range s.Arc {
		for i := range s.Arc[o] {
			row := s.Arc[o][i]
			for j := range row {
				row[j] = 0
			}
		}
	}
	s.Null = make(SparseArcs)
	s.LogLikelihood = 0
	s.Sequences = 0
}

// Merge adds o into s. Both must be shaped for the same model.
func (s *Stats) Merge(o *Stats) {
	for sym := range s.Arc {
		for i := range s.Arc[sym] {
			dst, src := s.Arc[sym][i], o.Arc[sym][i]
			for j := range dst {
				dst[j] += src[j]
			}
		}
	}
	s.Null.Merge(o.Null)
	s.LogLikelihood += o.LogLikelihood
	s.Sequences += o.Sequences
}

// ArcCount returns the expected number of uses of the emitting arc
// from->to, summed over symbols.
func (s *Stats) ArcCount(from, to int) float64 {
	sum := 0.0
	for o := range s.Arc {
		sum += s.Arc[o][from][to]
	}
	return sum
}

// seqCounts buffers one sequence's emitting-arc posteriors by symbol.
// Nothing reaches a Stats until commit.
type seqCounts struct {
	states int
	bySym  map[int]mathutil.Mat
}

func newSeqCounts(states int) *seqCounts {
	return &seqCounts{states: states, bySym: make(map[int]mathutil.Mat)}
}

func (c *seqCounts) add(sym int, xi mathutil.Mat) {
	acc, ok := c.bySym[sym]
	if !ok {
		acc = mathutil.NewMat(c.states, c.states)
		c.bySym[sym] = acc
	}
	for i := range xi {
		floats.Add(acc[i], xi[i])
	}
}

func (c *seqCounts) commit(s *Stats) {
	for sym, acc := range c.bySym {
		for i := range acc {
			floats.Add(s.Arc[sym][i], acc[i])
		}
	}
}
