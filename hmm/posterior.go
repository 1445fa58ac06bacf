package hmm

import (
	"math"

	"github.com/ieee0824/wordhmm-go/internal/mathutil"
	"gonum.org/v1/gonum/floats"
)

// ForwardBackward runs the scaled engine over obs and adds the arc
// posteriors into the model's own accumulators.
func (m *Model) ForwardBackward(obs []int, opts ...Option) (*Trellis, error) {
	return m.Accumulate(m.stats, obs, opts...)
}

// Accumulate runs the scaled engine over obs and adds the arc posteriors into
// stats. The model is only read, so concurrent calls with distinct stats are
// safe once the topological order is current.
func (m *Model) Accumulate(stats *Stats, obs []int, opts ...Option) (*Trellis, error) {
	c, err := m.runConfig(opts)
	if err != nil {
		return nil, err
	}
	alpha, q, err := m.Forward(obs, c.initial)
	if err != nil {
		return nil, err
	}
	beta, err := m.Backward(obs, q, c.terminal)
	if err != nil {
		return nil, err
	}
	T := len(obs)
	ll, err := scaledLogLikelihood(alpha[T], q, c.terminal, T)
	if err != nil {
		return nil, err
	}
	mass := finalMass(alpha[T], c.terminal)

	xi := mathutil.NewMat(m.States, m.States)
	counts := newSeqCounts(m.States)
	for t := 1; t <= T; t++ {
		o := obs[t-1]
		emit := m.Emit[o]
		total := 0.0
		for i, a := range alpha[t-1] {
			row := xi[i]
			for j, p := range m.Trans[i] {
				v := 0.0
				if a != 0 && p != 0 {
					v = a * p * emit[j] * beta[t][j] / mass
				}
				row[j] = v
				total += v
			}
		}
		if math.IsNaN(total) {
			return nil, &DegenerateSequenceError{Time: t, Symbol: o}
		}
		if math.Abs(total-1) > Tolerance {
			return nil, &NormalizationError{Model: m.Name, Kind: PosteriorMass, Index: t, Got: total, Want: 1}
		}
		counts.add(o, xi)
	}
	counts.commit(stats)

	// No null transitions are taken at the first or last stage.
	for t := 1; t < T; t++ {
		for s, edges := range m.nullOut {
			if alpha[t][s] == 0 {
				continue
			}
			for _, e := range edges {
				v := alpha[t][s] * e.p * beta[t][e.to] * q[t] / mass
				if v != 0 {
					stats.Null.Add(s, e.to, v)
				}
			}
		}
	}

	stats.LogLikelihood += ll
	stats.Sequences++
	return &Trellis{Alpha: alpha, Beta: beta, Q: q, LogLikelihood: ll}, nil
}

// StatePosteriors returns, per stage, the normalized occupancy
// alpha[t][j]·beta[t][j]. It accepts trellises from either engine, so the
// two can be compared directly.
func StatePosteriors(tr *Trellis) mathutil.Mat {
	gamma := mathutil.NewMat(len(tr.Alpha), len(tr.Alpha[0]))
	for t := range tr.Alpha {
		if tr.Log {
			for j := range gamma[t] {
				gamma[t][j] = tr.Alpha[t][j] + tr.Beta[t][j]
			}
			z := floats.LogSumExp(gamma[t])
			for j, v := range gamma[t] {
				if mathutil.IsLogZero(z) {
					gamma[t][j] = 0
					continue
				}
				gamma[t][j] = math.Exp(v - z)
			}
			continue
		}
		floats.MulTo(gamma[t], tr.Alpha[t], tr.Beta[t])
		if z := floats.Sum(gamma[t]); z > 0 {
			floats.Scale(1/z, gamma[t])
		}
	}
	return gamma
}
