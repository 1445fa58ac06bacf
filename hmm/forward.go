package hmm

import (
	"math"

	"github.com/ieee0824/wordhmm-go/internal/mathutil"
	"gonum.org/v1/gonum/floats"
)

// Trellis holds the result of one forward-backward pass over a sequence of
// length T. Alpha and Beta have T+1 stages. For the scaled engine they are
// normalized per stage and Q holds the stage divisors; for the log engine
// they are natural logs and Q is nil.
type Trellis struct {
	Alpha         mathutil.Mat
	Beta          mathutil.Mat
	Q             []float64
	LogLikelihood float64
	Log           bool
}

// Option configures a forward-backward run.
type Option func(*runConfig)

type runConfig struct {
	initial  []float64
	terminal []float64
}

// WithInitial sets the stage-0 state distribution. The default is uniform.
func WithInitial(p []float64) Option {
	return func(c *runConfig) { c.initial = p }
}

// WithTerminal sets the final-stage weights. The default is all ones.
func WithTerminal(p []float64) Option {
	return func(c *runConfig) { c.terminal = p }
}

func (m *Model) runConfig(opts []Option) (runConfig, error) {
	var c runConfig
	for _, opt := range opts {
		opt(&c)
	}
	if err := m.checkDist("initial", c.initial); err != nil {
		return c, err
	}
	if err := m.checkDist("terminal", c.terminal); err != nil {
		return c, err
	}
	if c.initial == nil {
		c.initial = mathutil.NewVecFill(m.States, 1/float64(m.States))
	}
	if c.terminal == nil {
		c.terminal = mathutil.NewVecFill(m.States, 1)
	}
	return c, nil
}

// Forward computes the scaled forward trellis. alpha[t] is normalized to sum
// to one and q[t] is the divisor applied at stage t. Null arcs are
// propagated in topological order at every stage except the first and last.
func (m *Model) Forward(obs []int, initial []float64) (mathutil.Mat, []float64, error) {
	if err := m.checkSequence(obs); err != nil {
		return nil, nil, err
	}
	if err := m.checkDist("initial", initial); err != nil {
		return nil, nil, err
	}
	if err := m.ensureOrder(); err != nil {
		return nil, nil, err
	}
	if initial == nil {
		initial = mathutil.NewVecFill(m.States, 1/float64(m.States))
	}

	T := len(obs)
	alpha := mathutil.NewMat(T+1, m.States)
	q := make([]float64, T+1)

	copy(alpha[0], initial)
	q[0] = floats.Sum(alpha[0])
	if !(q[0] > 0) {
		return nil, nil, &DegenerateSequenceError{Time: 0, Symbol: -1}
	}
	floats.Scale(1/q[0], alpha[0])

	for t := 1; t <= T; t++ {
		o := obs[t-1]
		emit := m.Emit[o]
		prev, cur := alpha[t-1], alpha[t]
		for i, a := range prev {
			if a == 0 {
				continue
			}
			for j, p := range m.Trans[i] {
				if p != 0 {
					cur[j] += a * p * emit[j]
				}
			}
		}
		if t < T {
			m.propagateNullForward(cur)
		}
		q[t] = floats.Sum(cur)
		if !(q[t] > 0) || math.IsInf(q[t], 0) {
			return nil, nil, &DegenerateSequenceError{Time: t, Symbol: o}
		}
		floats.Scale(1/q[t], cur)
	}
	return alpha, q, nil
}

// Backward computes the backward trellis scaled by the forward divisors q.
// beta[T] is the terminal weights divided by q[T]; null arcs are propagated
// in reverse topological order at every earlier stage.
func (m *Model) Backward(obs []int, q []float64, terminal []float64) (mathutil.Mat, error) {
	if err := m.checkSequence(obs); err != nil {
		return nil, err
	}
	if err := m.checkDist("terminal", terminal); err != nil {
		return nil, err
	}
	if len(q) != len(obs)+1 {
		return nil, ErrShape
	}
	if err := m.ensureOrder(); err != nil {
		return nil, err
	}

	T := len(obs)
	beta := mathutil.NewMat(T+1, m.States)
	if terminal == nil {
		mathutil.FillVec(beta[T], 1)
	} else {
		copy(beta[T], terminal)
	}
	floats.Scale(1/q[T], beta[T])

	for t := T - 1; t >= 0; t-- {
		emit := m.Emit[obs[t]]
		next, cur := beta[t+1], beta[t]
		for i, row := range m.Trans {
			sum := 0.0
			for j, p := range row {
				if p != 0 {
					sum += p * emit[j] * next[j]
				}
			}
			cur[i] = sum
		}
		m.propagateNullBackward(cur)
		floats.Scale(1/q[t], cur)
	}
	return beta, nil
}

func (m *Model) propagateNullForward(v []float64) {
	for _, s := range m.order {
		if v[s] == 0 {
			continue
		}
		for _, e := range m.nullOut[s] {
			v[e.to] += v[s] * e.p
		}
	}
}

func (m *Model) propagateNullBackward(v []float64) {
	for k := len(m.order) - 1; k >= 0; k-- {
		s := m.order[k]
		for _, e := range m.nullOut[s] {
			v[s] += v[e.to] * e.p
		}
	}
}

// finalMass is the terminal-weighted mass of the last normalized forward
// stage. It is one for the default all-ones terminal weights.
func finalMass(alphaT, terminal []float64) float64 {
	return floats.Dot(alphaT, terminal)
}

// LogLikelihood scores a sequence without touching the accumulators:
// Σ log Q[t] plus the log of the final normalized mass.
func (m *Model) LogLikelihood(obs []int, opts ...Option) (float64, error) {
	c, err := m.runConfig(opts)
	if err != nil {
		return 0, err
	}
	alpha, q, err := m.Forward(obs, c.initial)
	if err != nil {
		return 0, err
	}
	return scaledLogLikelihood(alpha[len(obs)], q, c.terminal, len(obs))
}

func scaledLogLikelihood(alphaT, q, terminal []float64, T int) (float64, error) {
	mass := finalMass(alphaT, terminal)
	if !(mass > 0) {
		return 0, &DegenerateSequenceError{Time: T, Symbol: -1}
	}
	ll := math.Log(mass)
	for _, v := range q {
		ll += math.Log(v)
	}
	return ll, nil
}
