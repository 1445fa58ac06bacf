package hmm

import (
	"math"

	"github.com/ieee0824/wordhmm-go/internal/mathutil"
	"gonum.org/v1/gonum/floats"
)

// logParams holds log-domain copies of the model parameters for one run.
type logParams struct {
	trans mathutil.Mat
	emit  mathutil.Mat
}

func (m *Model) logParams() logParams {
	lp := logParams{
		trans: mathutil.NewMat(m.States, m.States),
		emit:  mathutil.NewMat(m.Outputs, m.States),
	}
	for i, row := range m.Trans {
		for j, p := range row {
			lp.trans[i][j] = mathutil.Log(p)
		}
	}
	for o, row := range m.Emit {
		for j, p := range row {
			lp.emit[o][j] = mathutil.Log(p)
		}
	}
	return lp
}

func logVec(p []float64) []float64 {
	v := make([]float64, len(p))
	for i, x := range p {
		v[i] = mathutil.Log(x)
	}
	return v
}

// ForwardLog computes the forward trellis with every value carried as a
// natural log. The initial distribution is used as given, so the result
// matches the scaled engine including its stage-0 divisor.
func (m *Model) ForwardLog(obs []int, initial []float64) (mathutil.Mat, error) {
	if err := m.checkSequence(obs); err != nil {
		return nil, err
	}
	if err := m.checkDist("initial", initial); err != nil {
		return nil, err
	}
	if err := m.ensureOrder(); err != nil {
		return nil, err
	}
	if initial == nil {
		initial = mathutil.NewVecFill(m.States, 1/float64(m.States))
	}
	return m.forwardLog(m.logParams(), obs, initial), nil
}

func (m *Model) forwardLog(lp logParams, obs []int, initial []float64) mathutil.Mat {
	T := len(obs)
	la := mathutil.NewMatFill(T+1, m.States, mathutil.LogZero)
	copy(la[0], logVec(initial))

	terms := make([]float64, m.States)
	for t := 1; t <= T; t++ {
		emit := lp.emit[obs[t-1]]
		for j := 0; j < m.States; j++ {
			if mathutil.IsLogZero(emit[j]) {
				continue
			}
			for i := range terms {
				terms[i] = la[t-1][i] + lp.trans[i][j]
			}
			la[t][j] = floats.LogSumExp(terms) + emit[j]
		}
		if t < T {
			for _, s := range m.order {
				for _, e := range m.nullOut[s] {
					la[t][e.to] = mathutil.LogAdd(la[t][e.to], la[t][s]+math.Log(e.p))
				}
			}
		}
	}
	return la
}

// BackwardLog computes the backward trellis in the log domain. The terminal
// weights default to all ones (log zero everywhere).
func (m *Model) BackwardLog(obs []int, terminal []float64) (mathutil.Mat, error) {
	if err := m.checkSequence(obs); err != nil {
		return nil, err
	}
	if err := m.checkDist("terminal", terminal); err != nil {
		return nil, err
	}
	if err := m.ensureOrder(); err != nil {
		return nil, err
	}
	if terminal == nil {
		terminal = mathutil.NewVecFill(m.States, 1)
	}
	return m.backwardLog(m.logParams(), obs, terminal), nil
}

func (m *Model) backwardLog(lp logParams, obs []int, terminal []float64) mathutil.Mat {
	T := len(obs)
	lb := mathutil.NewMatFill(T+1, m.States, mathutil.LogZero)
	copy(lb[T], logVec(terminal))

	terms := make([]float64, m.States)
	for t := T - 1; t >= 0; t-- {
		emit := lp.emit[obs[t]]
		for i := 0; i < m.States; i++ {
			for j := range terms {
				terms[j] = lp.trans[i][j] + emit[j] + lb[t+1][j]
			}
			lb[t][i] = floats.LogSumExp(terms)
		}
		for k := len(m.order) - 1; k >= 0; k-- {
			s := m.order[k]
			for _, e := range m.nullOut[s] {
				lb[t][s] = mathutil.LogAdd(lb[t][s], lb[t][e.to]+math.Log(e.p))
			}
		}
	}
	return lb
}

// logTotal returns log Σ_j exp(la[T][j]) · terminal[j], or a
// DegenerateSequenceError at the first stage whose forward mass vanished.
func logTotal(la mathutil.Mat, obs []int, terminal []float64) (float64, error) {
	T := len(obs)
	lt := logVec(terminal)
	terms := make([]float64, len(lt))
	for j := range terms {
		terms[j] = la[T][j] + lt[j]
	}
	ll := floats.LogSumExp(terms)
	if !math.IsNaN(ll) && !mathutil.IsLogZero(ll) {
		return ll, nil
	}
	for t := range la {
		if mathutil.IsLogZero(floats.Max(la[t])) || math.IsNaN(floats.Sum(la[t])) {
			if t == 0 {
				return 0, &DegenerateSequenceError{Time: 0, Symbol: -1}
			}
			return 0, &DegenerateSequenceError{Time: t, Symbol: obs[t-1]}
		}
	}
	return 0, &DegenerateSequenceError{Time: T, Symbol: -1}
}

// LogLikelihoodLog scores a sequence with the log-domain forward pass.
func (m *Model) LogLikelihoodLog(obs []int, opts ...Option) (float64, error) {
	c, err := m.runConfig(opts)
	if err != nil {
		return 0, err
	}
	la, err := m.ForwardLog(obs, c.initial)
	if err != nil {
		return 0, err
	}
	return logTotal(la, obs, c.terminal)
}

// ForwardBackwardLog runs the log-domain engine and adds the arc posteriors
// into the model's own accumulators.
func (m *Model) ForwardBackwardLog(obs []int, opts ...Option) (*Trellis, error) {
	return m.AccumulateLog(m.stats, obs, opts...)
}

// AccumulateLog is the log-domain counterpart of Accumulate.
func (m *Model) AccumulateLog(stats *Stats, obs []int, opts ...Option) (*Trellis, error) {
	c, err := m.runConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := m.checkSequence(obs); err != nil {
		return nil, err
	}
	if err := m.ensureOrder(); err != nil {
		return nil, err
	}
	lp := m.logParams()
	la := m.forwardLog(lp, obs, c.initial)
	lb := m.backwardLog(lp, obs, c.terminal)
	ll, err := logTotal(la, obs, c.terminal)
	if err != nil {
		return nil, err
	}

	T := len(obs)
	xi := mathutil.NewMat(m.States, m.States)
	counts := newSeqCounts(m.States)
	for t := 1; t <= T; t++ {
		o := obs[t-1]
		emit := lp.emit[o]
		total := 0.0
		for i := range xi {
			for j := range xi[i] {
				v := la[t-1][i] + lp.trans[i][j] + emit[j] + lb[t][j] - ll
				xi[i][j] = math.Exp(v)
				total += xi[i][j]
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

	for t := 1; t < T; t++ {
		for s, edges := range m.nullOut {
			for _, e := range edges {
				v := math.Exp(la[t][s] + math.Log(e.p) + lb[t][e.to] - ll)
				if v != 0 {
					stats.Null.Add(s, e.to, v)
				}
			}
		}
	}

	stats.LogLikelihood += ll
	stats.Sequences++
	return &Trellis{Alpha: la, Beta: lb, LogLikelihood: ll, Log: true}, nil
}
