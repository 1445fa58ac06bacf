package hmm

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ieee0824/wordhmm-go/internal/mathutil"
)

func TestValidateTransitionRow(t *testing.T) {
	m := New("bad", 2, 2)
	m.Trans[0][0] = 0.5
	m.Trans[0][1] = 0.4
	m.Trans[1][1] = 1
	_ = m.SetEmissions(uniformEmissions(2, 2))

	err := m.Validate()
	var ne *NormalizationError
	if !errors.As(err, &ne) {
		t.Fatalf("Validate error = %v, want *NormalizationError", err)
	}
	if ne.Kind != TransitionRow || ne.Index != 0 {
		t.Errorf("got %s %d, want transition row 0", ne.Kind, ne.Index)
	}
	if math.Abs(ne.Got-0.9) > 1e-12 || ne.Want != 1 {
		t.Errorf("Got/Want = %f/%f, want 0.9/1", ne.Got, ne.Want)
	}

	// Null mass completes the row.
	if err := m.SetNull(0, 1, 0.1); err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate with null arc: %v", err)
	}
}

func TestValidateToleranceIs1e5(t *testing.T) {
	m := New("tol", 1, 1)
	m.Trans[0][0] = 1 - 5e-6
	m.Emit[0][0] = 1
	if err := m.Validate(); err != nil {
		t.Errorf("Validate within 1e-5: %v", err)
	}
	m.Trans[0][0] = 1 - 5e-5
	if err := m.Validate(); err == nil {
		t.Error("Validate outside 1e-5 returned nil")
	}
}

func TestValidateEmissionColumnOnlyForEnteredStates(t *testing.T) {
	m := New("emit", 2, 3)
	m.Trans[0][1] = 1
	m.Trans[1][1] = 1
	// State 0 is never entered, so its empty column is allowed.
	m.Emit[0][1] = 0.5
	m.Emit[2][1] = 0.25
	err := m.Validate()
	var ne *NormalizationError
	if !errors.As(err, &ne) || ne.Kind != EmissionColumn || ne.Index != 1 {
		t.Fatalf("Validate error = %v, want emission column 1", err)
	}
	m.Emit[1][1] = 0.25
	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSetNullRejectsOutOfRange(t *testing.T) {
	m := New("range", 3, 2)
	if err := m.SetNull(0, 3, 0.5); !errors.Is(err, ErrStateRange) {
		t.Errorf("SetNull(0, 3) error = %v, want ErrStateRange", err)
	}
}

func TestTopologicalSortOrdersNullArcs(t *testing.T) {
	m := New("topo", 5, 1)
	for _, a := range []Arc{{3, 1}, {1, 4}, {0, 3}, {2, 4}} {
		if err := m.SetNull(a.From, a.To, 0.1); err != nil {
			t.Fatal(err)
		}
	}
	if m.Order() != nil {
		t.Fatal("Order before sort should be nil")
	}
	if err := m.TopologicalSort(); err != nil {
		t.Fatalf("TopologicalSort: %v", err)
	}
	order := m.Order()
	pos := make([]int, m.States)
	seen := make([]bool, m.States)
	for k, s := range order {
		if seen[s] {
			t.Fatalf("state %d appears twice in %v", s, order)
		}
		seen[s] = true
		pos[s] = k
	}
	if len(order) != m.States {
		t.Fatalf("order %v does not cover %d states", order, m.States)
	}
	for _, a := range m.NullArcs().Arcs() {
		if pos[a.From] >= pos[a.To] {
			t.Errorf("null arc %d->%d goes backwards in %v", a.From, a.To, order)
		}
	}

	// Idempotent.
	if err := m.TopologicalSort(); err != nil {
		t.Fatal(err)
	}
	again := m.Order()
	for i := range order {
		if order[i] != again[i] {
			t.Fatalf("second sort %v differs from %v", again, order)
		}
	}
}

func TestTopologicalSortDetectsCycle(t *testing.T) {
	m := New("cycle", 4, 1)
	_ = m.SetNull(0, 1, 0.1)
	_ = m.SetNull(1, 2, 0.1)
	_ = m.SetNull(2, 1, 0.1)
	err := m.TopologicalSort()
	var ce *CyclicNullArcError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *CyclicNullArcError", err)
	}
	if len(ce.Unordered) != 2 || ce.Unordered[0] != 1 || ce.Unordered[1] != 2 {
		t.Errorf("Unordered = %v, want [1 2]", ce.Unordered)
	}
	if _, _, err := m.Forward([]int{0}, nil); !errors.As(err, &ce) {
		t.Errorf("Forward on cyclic model error = %v, want *CyclicNullArcError", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := makeChain(t, rng, 4, 3, 0.2)
	m.PinArc(0, 1)
	c := m.Clone()
	c.Trans[0][0] = 0
	c.Emit[0][0] = 0
	_ = c.SetNull(0, 2, 0.9)
	if m.Trans[0][0] == 0 || m.Emit[0][0] == 0 {
		t.Error("clone shares matrices with original")
	}
	if m.NullProb(0, 2) != 0.2 {
		t.Errorf("original null prob = %f, want 0.2", m.NullProb(0, 2))
	}
	if !c.Pinned(0, 1) {
		t.Error("clone lost pinned arc")
	}
}

func TestResetAccumulators(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	m := makeChain(t, rng, 5, 4, 0.2)
	if _, err := m.ForwardBackward(randomSequence(rng, 12, 4)); err != nil {
		t.Fatal(err)
	}
	if len(m.Stats().Null) == 0 {
		t.Fatal("expected null counts after a pass")
	}
	m.ResetAccumulators()
	s := m.Stats()
	if len(s.Null) != 0 || s.Sequences != 0 || s.LogLikelihood != 0 {
		t.Errorf("stats not reset: %d null, %d sequences, ll %f", len(s.Null), s.Sequences, s.LogLikelihood)
	}
	for o := range s.Arc {
		for i := range s.Arc[o] {
			for j, v := range s.Arc[o][i] {
				if v != 0 {
					t.Fatalf("Arc[%d][%d][%d] = %f after reset", o, i, j, v)
				}
			}
		}
	}
}

func TestSaveLoad(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m := makeChain(t, rng, 6, 5, 0.3)
	m.PinArc(1, 2)

	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.States != 6 || got.Outputs != 5 {
		t.Fatalf("shape = %dx%d, want 6x5", got.States, got.Outputs)
	}
	if got.NullProb(0, 2) != 0.3 || !got.Pinned(1, 2) {
		t.Error("null arcs or pinned arcs not restored")
	}
	obs := randomSequence(rng, 10, 5)
	want, _ := m.LogLikelihood(obs)
	ll, err := got.LogLikelihood(obs)
	if err != nil || math.Abs(ll-want) > 1e-12 {
		t.Errorf("LogLikelihood after load = %f (%v), want %f", ll, err, want)
	}
}

func TestSaveAllLoadAll(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	models := map[string]*Model{
		"also": makeChain(t, rng, 4, 3, 0),
		"bed":  makeChain(t, rng, 5, 3, 0.1),
	}
	var buf bytes.Buffer
	if err := SaveAll(&buf, models); err != nil {
		t.Fatal(err)
	}
	got, err := LoadAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["bed"].States != 5 || got["also"].Name != "also" {
		t.Errorf("LoadAll = %v", got)
	}
	if !matEqual(got["bed"].Emit, models["bed"].Emit) {
		t.Error("emissions differ after LoadAll")
	}
}

func matEqual(a, b mathutil.Mat) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}
