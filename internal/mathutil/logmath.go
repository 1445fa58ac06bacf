package mathutil

import "math"

// LogZero represents log(0). It is negative infinity so that gonum's
// floats.LogSumExp and plain comparisons agree on "impossible".
var LogZero = math.Inf(-1)

// Log returns log(p), mapping p <= 0 to LogZero.
func Log(p float64) float64 {
	if p <= 0 {
		return LogZero
	}
	return math.Log(p)
}

// IsLogZero reports whether v carries no probability mass.
func IsLogZero(v float64) bool {
	return math.IsInf(v, -1)
}

// logAddCutoff is the gap below which the smaller term no longer changes
// a float64 sum.
const logAddCutoff = -36.0

// LogAdd returns log(exp(a) + exp(b)).
func LogAdd(a, b float64) float64 {
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	if IsLogZero(lo) {
		return hi
	}
	if d := lo - hi; d > logAddCutoff {
		return hi + math.Log1p(math.Exp(d))
	}
	return hi
}
