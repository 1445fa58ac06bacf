package hmm

import (
	"fmt"
	"math/rand"
)

// Sample draws an observation sequence of length T from the model, using the
// same generative reading as the recursions: a start state from initial
// (uniform when nil), then at every stage a move out of the current state
// chosen among its emitting and null arcs. Null moves stay within the stage
// and a symbol is emitted on arrival at the end of each emitting move. Null
// arcs are not taken at the first stage, matching the forward pass.
func (m *Model) Sample(rng *rand.Rand, T int, initial []float64) ([]int, error) {
	if err := m.checkDist("initial", initial); err != nil {
		return nil, err
	}
	if initial == nil {
		initial = make([]float64, m.States)
		for i := range initial {
			initial[i] = 1
		}
	}
	state, ok := draw(rng, initial)
	if !ok {
		return nil, fmt.Errorf("sample: initial distribution has no mass: %w", ErrShape)
	}

	obs := make([]int, 0, T)
	for t := 0; t < T; t++ {
		next, err := m.sampleMove(rng, state, t > 0)
		if err != nil {
			return nil, err
		}
		sym, ok := draw(rng, column(m.Emit, next))
		if !ok {
			return nil, fmt.Errorf("sample: state %d emits nothing", next)
		}
		obs = append(obs, sym)
		state = next
	}
	return obs, nil
}

// sampleMove follows null arcs (when allowed) until an emitting arc is
// chosen, returning its destination.
func (m *Model) sampleMove(rng *rand.Rand, state int, allowNull bool) (int, error) {
	for steps := 0; steps <= m.States; steps++ {
		weights := append([]float64(nil), m.Trans[state]...)
		nulls := make([]float64, m.States)
		if allowNull {
			for a, p := range m.null {
				if a.From == state {
					nulls[a.To] = p
				}
			}
		}
		k, ok := draw(rng, append(weights, nulls...))
		if !ok {
			return 0, fmt.Errorf("sample: state %d has no outgoing mass", state)
		}
		if k < m.States {
			return k, nil
		}
		state = k - m.States
	}
	return 0, fmt.Errorf("sample: null arcs from state %d do not terminate", state)
}

func column(mat [][]float64, j int) []float64 {
	c := make([]float64, len(mat))
	for i := range mat {
		c[i] = mat[i][j]
	}
	return c
}

// draw picks an index with probability proportional to w.
func draw(rng *rand.Rand, w []float64) (int, bool) {
	total := 0.0
	for _, v := range w {
		total += v
	}
	if !(total > 0) {
		return 0, false
	}
	u := rng.Float64() * total
	last := -1
	for i, v := range w {
		if v <= 0 {
			continue
		}
		last = i
		u -= v
		if u < 0 {
			return i, true
		}
	}
	return last, true
}
