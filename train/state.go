package train

// State is the lifecycle position of one word model.
type State int

const (
	Uninitialized State = iota
	Composed
	Reset
	Accumulating
	Reestimated
	Converged
	BudgetExhausted
	Failed
)

var stateNames = [...]string{
	Uninitialized:   "uninitialized",
	Composed:        "composed",
	Reset:           "reset",
	Accumulating:    "accumulating",
	Reestimated:     "reestimated",
	Converged:       "converged",
	BudgetExhausted: "budget-exhausted",
	Failed:          "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Final reports whether no further iteration touches the model.
func (s State) Final() bool {
	return s == Converged || s == BudgetExhausted || s == Failed
}
