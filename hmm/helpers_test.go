package hmm

import (
	"math/rand"
	"testing"

	"github.com/ieee0824/wordhmm-go/internal/mathutil"
)

// makeChain builds a left-to-right model with self-loops, forward arcs and,
// when skip > 0, a null arc skipping one state. Emission columns are random
// but strictly positive.
func makeChain(t *testing.T, rng *rand.Rand, states, outputs int, skip float64) *Model {
	t.Helper()
	m := New("chain", states, outputs)
	for i := 0; i < states; i++ {
		switch {
		case i == states-1:
			m.Trans[i][i] = 1
		case i+2 < states && skip > 0:
			m.Trans[i][i] = 0.5 * (1 - skip)
			m.Trans[i][i+1] = 0.5 * (1 - skip)
			if err := m.SetNull(i, i+2, skip); err != nil {
				t.Fatalf("SetNull: %v", err)
			}
		default:
			m.Trans[i][i] = 0.5
			m.Trans[i][i+1] = 0.5
		}
	}
	for j := 0; j < states; j++ {
		sum := 0.0
		for o := 0; o < outputs; o++ {
			m.Emit[o][j] = 0.1 + rng.Float64()
			sum += m.Emit[o][j]
		}
		for o := 0; o < outputs; o++ {
			m.Emit[o][j] /= sum
		}
	}
	if err := m.TopologicalSort(); err != nil {
		t.Fatalf("TopologicalSort: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return m
}

func randomSequence(rng *rand.Rand, T, outputs int) []int {
	obs := make([]int, T)
	for i := range obs {
		obs[i] = rng.Intn(outputs)
	}
	return obs
}

func uniformEmissions(outputs, states int) mathutil.Mat {
	return mathutil.NewMatFill(outputs, states, 1/float64(outputs))
}
