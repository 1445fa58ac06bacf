package hmm

import (
	"errors"
	"fmt"
)

// Tolerance is the slack allowed when checking that a probability row,
// column or per-stage posterior sums to one.
const Tolerance = 1e-5

var (
	// ErrSymbolRange is returned when an observation lies outside [0, Outputs).
	ErrSymbolRange = errors.New("hmm: observation symbol out of range")
	// ErrEmptySequence is returned for zero-length observation sequences.
	ErrEmptySequence = errors.New("hmm: empty observation sequence")
	// ErrStateRange is returned when an arc references a state outside the model.
	ErrStateRange = errors.New("hmm: state index out of range")
	// ErrShape is returned when a matrix or distribution has the wrong dimensions.
	ErrShape = errors.New("hmm: shape mismatch")
)

// NormalizationKind names the quantity that failed to sum to one.
type NormalizationKind int

const (
	TransitionRow NormalizationKind = iota
	EmissionColumn
	PosteriorMass
)

func (k NormalizationKind) String() string {
	switch k {
	case TransitionRow:
		return "transition row of state"
	case EmissionColumn:
		return "emission column of state"
	case PosteriorMass:
		return "emitting-arc posterior at stage"
	}
	return "unknown"
}

// NormalizationError reports a stochastic invariant violation. Index is a
// state for TransitionRow/EmissionColumn and a time stage for PosteriorMass.
type NormalizationError struct {
	Model string
	Kind  NormalizationKind
	Index int
	Got   float64
	Want  float64
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("hmm %q: %s %d sums to %.8f, want %.8f", e.Model, e.Kind, e.Index, e.Got, e.Want)
}

// CyclicNullArcError reports that the null-arc subgraph is not acyclic.
// Unordered lists the states that could not be placed in topological order.
type CyclicNullArcError struct {
	Model     string
	Unordered []int
}

func (e *CyclicNullArcError) Error() string {
	return fmt.Sprintf("hmm %q: null arcs form a cycle through states %v", e.Model, e.Unordered)
}

// DegenerateSequenceError reports that the probability mass of a sequence
// vanished at stage Time, while consuming Symbol. Symbol is -1 when the
// initial distribution itself carries no mass.
type DegenerateSequenceError struct {
	Time   int
	Symbol int
}

func (e *DegenerateSequenceError) Error() string {
	return fmt.Sprintf("hmm: sequence has zero likelihood at stage %d (symbol %d)", e.Time, e.Symbol)
}
