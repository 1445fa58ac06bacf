package compose

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ieee0824/wordhmm-go/hmm"
	"github.com/ieee0824/wordhmm-go/internal/mathutil"
)

// Prototype sizes of the standard inventory.
const (
	LetterStates  = 3
	SilenceStates = 5
)

var letterTrans = [][]float64{
	{0.8, 0.2, 0.0},
	{0.0, 0.8, 0.2},
	{0.0, 0.0, 0.8},
}

var silenceTrans = [][]float64{
	{0.25, 0.25, 0.25, 0.25, 0.00},
	{0.00, 0.25, 0.25, 0.25, 0.25},
	{0.00, 0.25, 0.25, 0.25, 0.25},
	{0.00, 0.25, 0.25, 0.25, 0.25},
	{0.00, 0.00, 0.00, 0.00, 0.75},
}

// NewLetterPrototype returns the 3-state left-to-right letter sub-model.
// Every state emits with distribution emit; nil means uniform. The last
// state leaves 0.2 of its mass as exit.
func NewLetterPrototype(outputs int, emit []float64) (*hmm.Model, error) {
	return newPrototype("letter", letterTrans, outputs, emit)
}

// NewSilencePrototype returns the 5-state silence sub-model. The last
// state leaves 0.25 of its mass as exit.
func NewSilencePrototype(outputs int, emit []float64) (*hmm.Model, error) {
	return newPrototype("silence", silenceTrans, outputs, emit)
}

func newPrototype(name string, trans [][]float64, outputs int, emit []float64) (*hmm.Model, error) {
	states := len(trans)
	m := hmm.New(name, states, outputs)
	if err := m.SetTransitions(trans); err != nil {
		return nil, err
	}
	var e mathutil.Mat
	if emit == nil {
		e = UniformEmissions(outputs, states)
	} else {
		if err := checkEmission(emit, outputs); err != nil {
			return nil, &PrototypeError{Name: name, Reason: err.Error()}
		}
		e = mathutil.NewMat(outputs, states)
		for o, p := range emit {
			mathutil.FillVec(e[o], p)
		}
	}
	if err := m.SetEmissions(e); err != nil {
		return nil, err
	}
	if err := ValidatePrototype(m); err != nil {
		return nil, err
	}
	return m, nil
}

// UniformEmissions returns an outputs x states emission matrix with every
// column uniform.
func UniformEmissions(outputs, states int) mathutil.Mat {
	return mathutil.NewMatFill(outputs, states, 1/float64(outputs))
}

func checkEmission(p []float64, outputs int) error {
	if len(p) != outputs {
		return fmt.Errorf("emission has %d entries for %d outputs", len(p), outputs)
	}
	if floats.Min(p) < 0 {
		return fmt.Errorf("emission has a negative entry")
	}
	if sum := floats.Sum(p); math.Abs(sum-1) > hmm.Tolerance {
		return fmt.Errorf("emission sums to %g", sum)
	}
	return nil
}

// rowMass returns the emitting plus null mass leaving state i.
func rowMass(m *hmm.Model, i int) float64 {
	return floats.Sum(m.Trans[i]) + m.NullArcs().RowSum(i)
}

// ExitMass returns the mass the last state of an open sub-model leaves
// unassigned. Composition hands it to the next block.
func ExitMass(m *hmm.Model) float64 {
	return 1 - rowMass(m, m.States-1)
}

// ValidatePrototype checks that m is an open sub-model: every row but the
// last sums to one, the last leaves a positive exit mass, and every
// emission column is normalized.
func ValidatePrototype(m *hmm.Model) error {
	if m.States == 0 {
		return &PrototypeError{Name: m.Name, Reason: "no states"}
	}
	last := m.States - 1
	for i := 0; i < last; i++ {
		if sum := rowMass(m, i); math.Abs(sum-1) > hmm.Tolerance {
			return &hmm.NormalizationError{
				Model: m.Name,
				Kind:  hmm.TransitionRow,
				Index: i,
				Got:   sum,
				Want:  1,
			}
		}
	}
	if exit := ExitMass(m); exit <= hmm.Tolerance || exit > 1 {
		return &PrototypeError{
			Name:   m.Name,
			Reason: fmt.Sprintf("last state exit mass %g not in (0, 1]", exit),
		}
	}
	for j := 0; j < m.States; j++ {
		if sum := mathutil.ColSum(m.Emit, j); math.Abs(sum-1) > hmm.Tolerance {
			return &hmm.NormalizationError{
				Model: m.Name,
				Kind:  hmm.EmissionColumn,
				Index: j,
				Got:   sum,
				Want:  1,
			}
		}
	}
	return nil
}
