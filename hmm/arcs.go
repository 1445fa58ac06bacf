package hmm

import "sort"

// Arc identifies a directed arc between two states.
type Arc struct {
	From, To int
}

// SparseArcs maps arcs to weights. An absent arc reads as zero, and reads
// never create entries.
type SparseArcs map[Arc]float64

// Get returns the weight of from->to, or zero.
func (s SparseArcs) Get(from, to int) float64 {
	return s[Arc{from, to}]
}

// Add adds v to the weight of from->to.
func (s SparseArcs) Add(from, to int, v float64) {
	s[Arc{from, to}] += v
}

// RowSum returns the total weight leaving from.
func (s SparseArcs) RowSum(from int) float64 {
	sum := 0.0
	for a, v := range s {
		if a.From == from {
			sum += v
		}
	}
	return sum
}

// Arcs returns the keys ordered by origin, then destination.
func (s SparseArcs) Arcs() []Arc {
	arcs := make([]Arc, 0, len(s))
	for a := range s {
		arcs = append(arcs, a)
	}
	sort.Slice(arcs, func(i, j int) bool {
		if arcs[i].From != arcs[j].From {
			return arcs[i].From < arcs[j].From
		}
		return arcs[i].To < arcs[j].To
	})
	return arcs
}

// Merge adds every weight of o into s.
func (s SparseArcs) Merge(o SparseArcs) {
	for a, v := range o {
		s[a] += v
	}
}

// Clone returns an independent copy.
func (s SparseArcs) Clone() SparseArcs {
	c := make(SparseArcs, len(s))
	for a, v := range s {
		c[a] = v
	}
	return c
}

// Shift returns a copy with every state index moved by offset.
func (s SparseArcs) Shift(offset int) SparseArcs {
	c := make(SparseArcs, len(s))
	for a, v := range s {
		c[Arc{a.From + offset, a.To + offset}] = v
	}
	return c
}

// nullEdge is the per-origin adjacency form of a null arc used by the
// recursions.
type nullEdge struct {
	to int
	p  float64
}
