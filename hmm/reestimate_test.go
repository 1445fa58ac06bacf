package hmm

import (
	"math"
	"math/rand"
	"testing"
)

func TestEMMonotonicOnSampledData(t *testing.T) {
	rng := rand.New(rand.NewSource(20))
	truth := makeChain(t, rng, 6, 8, 0.2)

	var data [][]int
	for n := 0; n < 30; n++ {
		obs, err := truth.Sample(rng, 25, nil)
		if err != nil {
			t.Fatalf("Sample: %v", err)
		}
		data = append(data, obs)
	}

	// Start from the true topology with perturbed emissions.
	m := truth.Clone()
	for j := 0; j < m.States; j++ {
		sum := 0.0
		for o := 0; o < m.Outputs; o++ {
			m.Emit[o][j] *= 0.5 + rng.Float64()
			sum += m.Emit[o][j]
		}
		for o := 0; o < m.Outputs; o++ {
			m.Emit[o][j] /= sum
		}
	}

	prev := math.Inf(-1)
	for iter := 0; iter < 25; iter++ {
		m.ResetAccumulators()
		for _, obs := range data {
			if _, err := m.ForwardBackward(obs); err != nil {
				t.Fatalf("iter %d: %v", iter, err)
			}
		}
		ll := m.Stats().LogLikelihood
		if ll < prev-1e-8*math.Abs(prev) {
			t.Fatalf("iter %d: log-likelihood decreased from %f to %f", iter, prev, ll)
		}
		prev = ll
		if err := m.Reestimate(); err != nil {
			t.Fatalf("iter %d: Reestimate: %v", iter, err)
		}
	}
}

func TestReestimateKeepsUnreachedEmissionsAtZero(t *testing.T) {
	m := New("unreached", 3, 2)
	m.Trans[0][0] = 0.5
	m.Trans[0][1] = 0.5
	m.Trans[1][1] = 1
	m.Trans[2][2] = 1
	m.Emit[0][0], m.Emit[1][0] = 0.5, 0.5
	m.Emit[0][1], m.Emit[1][1] = 0.5, 0.5
	m.Emit[0][2], m.Emit[1][2] = 0.5, 0.5
	// State 2 can only start a path; a zero initial weight keeps it unused.
	if _, err := m.ForwardBackward([]int{0, 1, 0}, WithInitial([]float64{1, 0, 0})); err != nil {
		t.Fatal(err)
	}
	if err := m.Reestimate(); err != nil {
		t.Fatalf("Reestimate: %v", err)
	}
	if m.Emit[0][2] != 0 || m.Emit[1][2] != 0 {
		t.Errorf("emission column 2 = [%f %f], want zeros", m.Emit[0][2], m.Emit[1][2])
	}
	if got := m.UnreachedStates(); len(got) != 1 || got[0] != 2 {
		t.Errorf("UnreachedStates = %v, want [2]", got)
	}
	// Never left, so the row keeps its previous value.
	if m.Trans[2][2] != 1 {
		t.Errorf("trans 2->2 = %f, want 1", m.Trans[2][2])
	}
}

func TestReestimateHonoursPinnedArcs(t *testing.T) {
	m := New("pinned", 3, 2)
	m.Trans[0][0] = 0.6
	m.Trans[0][1] = 0.4
	m.Trans[1][1] = 0.7
	m.Trans[1][2] = 0.3
	m.Trans[2][2] = 1
	for j := 0; j < 3; j++ {
		m.Emit[0][j], m.Emit[1][j] = 0.5, 0.5
	}
	m.PinArc(1, 2)

	for _, obs := range [][]int{{0, 1, 1, 0}, {1, 1, 0, 0, 1}} {
		if _, err := m.ForwardBackward(obs); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Reestimate(); err != nil {
		t.Fatalf("Reestimate: %v", err)
	}
	if m.Trans[1][2] != 0.3 {
		t.Errorf("pinned trans 1->2 = %f, want 0.3", m.Trans[1][2])
	}
	if math.Abs(m.Trans[1][1]-0.7) > 1e-12 {
		t.Errorf("trans 1->1 = %f, want remaining mass 0.7", m.Trans[1][1])
	}
}

func TestReestimateSharesBudgetWithNullArcs(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	m := makeChain(t, rng, 5, 3, 0.3)
	for n := 0; n < 4; n++ {
		if _, err := m.ForwardBackward(randomSequence(rng, 10, 3)); err != nil {
			t.Fatal(err)
		}
	}
	s := m.Stats()
	denom := s.ArcCount(0, 0) + s.ArcCount(0, 1) + s.Null.Get(0, 2)
	wantNull := s.Null.Get(0, 2) / denom
	wantSelf := s.ArcCount(0, 0) / denom
	if err := m.Reestimate(); err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.NullProb(0, 2)-wantNull) > 1e-12 {
		t.Errorf("null 0->2 = %f, want %f", m.NullProb(0, 2), wantNull)
	}
	if math.Abs(m.Trans[0][0]-wantSelf) > 1e-12 {
		t.Errorf("trans 0->0 = %f, want %f", m.Trans[0][0], wantSelf)
	}
}

func TestSampleRespectsSupport(t *testing.T) {
	m := nullArcModel(t)
	rng := rand.New(rand.NewSource(22))
	for n := 0; n < 50; n++ {
		obs, err := m.Sample(rng, 6, nil)
		if err != nil {
			t.Fatalf("Sample: %v", err)
		}
		if len(obs) != 6 {
			t.Fatalf("len = %d, want 6", len(obs))
		}
		if _, err := m.LogLikelihood(obs); err != nil {
			t.Fatalf("sampled sequence %v scored as %v", obs, err)
		}
	}
}
