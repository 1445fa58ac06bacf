package hmm

import "fmt"

// Reestimate replaces the model parameters with the maximum-likelihood
// estimates implied by the accumulated counts (the M-step).
//
// Emission column j becomes the per-symbol share of the expected arrivals
// in j; a state with no expected arrivals gets an all-zero column and is
// reported by UnreachedStates. Emitting and null arcs leaving a state share
// one denominator, the total expected mass leaving it. Pinned arcs keep their probability and the remaining
// mass is shared among the other arcs in proportion to their counts. A
// state that was never left keeps its previous row.
//
// The result must satisfy Validate; a failure indicates a bug rather than a
// data problem and is returned as is.
func (m *Model) Reestimate() error {
	s := m.stats
	N := m.States

	arrivals := make([]float64, N)
	for o := range s.Arc {
		for i := range s.Arc[o] {
			for j, v := range s.Arc[o][i] {
				arrivals[j] += v
			}
		}
	}
	m.unreached = make(map[int]bool)
	for j, v := range arrivals {
		if v == 0 {
			m.unreached[j] = true
		}
	}
	for o := range m.Emit {
		for j := 0; j < N; j++ {
			if arrivals[j] == 0 {
				m.Emit[o][j] = 0
				continue
			}
			sum := 0.0
			for i := 0; i < N; i++ {
				sum += s.Arc[o][i][j]
			}
			m.Emit[o][j] = sum / arrivals[j]
		}
	}

	nullOut := make([]float64, N)
	for a, v := range s.Null {
		nullOut[a.From] += v
	}
	for i := 0; i < N; i++ {
		counts := make([]float64, N)
		free := nullOut[i]
		fixed := 0.0
		for j := 0; j < N; j++ {
			counts[j] = s.ArcCount(i, j)
			if m.Pinned(i, j) {
				fixed += m.Trans[i][j]
			} else {
				free += counts[j]
			}
		}
		if free == 0 {
			continue
		}
		budget := 1 - fixed
		for j := 0; j < N; j++ {
			if !m.Pinned(i, j) {
				m.Trans[i][j] = budget * counts[j] / free
			}
		}
		for a := range m.null {
			if a.From == i {
				m.null[a] = budget * s.Null.Get(a.From, a.To) / free
			}
		}
	}
	m.refreshNull()

	if err := m.Validate(); err != nil {
		return fmt.Errorf("reestimate: %w", err)
	}
	return nil
}
