package hmm

import "sort"

// TopologicalSort orders the states so that every null arc points from an
// earlier to a later position, using Kahn's algorithm over the null-arc
// graph. It must run again whenever the null arcs change; it is idempotent.
func (m *Model) TopologicalSort() error {
	indeg := make([]int, m.States)
	out := make([][]nullEdge, m.States)
	for _, a := range m.null.Arcs() {
		indeg[a.To]++
		out[a.From] = append(out[a.From], nullEdge{to: a.To, p: m.null[a]})
	}

	// Seed with in-degree zero states; pop from the end so the lowest index
	// is visited first.
	stack := make([]int, 0, m.States)
	for s := m.States - 1; s >= 0; s-- {
		if indeg[s] == 0 {
			stack = append(stack, s)
		}
	}
	order := make([]int, 0, m.States)
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, s)
		for i := len(out[s]) - 1; i >= 0; i-- {
			d := out[s][i].to
			indeg[d]--
			if indeg[d] == 0 {
				stack = append(stack, d)
			}
		}
	}

	if len(order) != m.States {
		placed := make([]bool, m.States)
		for _, s := range order {
			placed[s] = true
		}
		var rest []int
		for s, ok := range placed {
			if !ok {
				rest = append(rest, s)
			}
		}
		sort.Ints(rest)
		return &CyclicNullArcError{Model: m.Name, Unordered: rest}
	}

	m.order = order
	m.nullOut = out
	m.stale = false
	return nil
}

// Order returns a copy of the current topological order, or nil if it has
// not been computed since the null arcs last changed.
func (m *Model) Order() []int {
	if m.stale {
		return nil
	}
	return append([]int(nil), m.order...)
}

func (m *Model) ensureOrder() error {
	if !m.stale {
		return nil
	}
	return m.TopologicalSort()
}

// refreshNull rewrites the cached null-arc probabilities after re-estimation
// without changing the arc set or the order.
func (m *Model) refreshNull() {
	for s := range m.nullOut {
		for k := range m.nullOut[s] {
			m.nullOut[s][k].p = m.null.Get(s, m.nullOut[s][k].to)
		}
	}
}
