package selector

import "sync"

// Memoized is a selector with a single-slot cache: the input tuple and
// result of the last successful computation. A cache hit requires every
// tracked input to compare equal to its captured value; any change
// triggers exactly one recomputation and cache replacement.
//
// The cache never resets on its own; Clear is the only reset path.
// Safe for concurrent use.
type Memoized[S, R any] struct {
	mu    sync.Mutex
	eval  func(state S) ([]any, func() R)
	equal Equality

	valid  bool
	inputs []any
	result R

	hits   uint64
	misses uint64
}

// Select evaluates the selector against the given state, returning the
// cached result when all inputs are unchanged. Input selectors and the
// combine function are pure and not a failure boundary: a panic inside
// either propagates to the caller and leaves the cache at its last good
// value.
func (m *Memoized[S, R]) Select(state S) R {
	inputs, combine := m.eval(state)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.matches(inputs) {
		m.hits++
		return m.result
	}

	result := combine()
	m.inputs = inputs
	m.result = result
	m.valid = true
	m.misses++
	return result
}

// Clear invalidates the cache. The next Select recomputes.
func (m *Memoized[S, R]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = false
	m.inputs = nil
	var zero R
	m.result = zero
}

// Stats reports cache hits and misses since construction.
func (m *Memoized[S, R]) Stats() (hits, misses uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// Func adapts the memoized selector for use as an input to further
// composition.
func (m *Memoized[S, R]) Func() Func[S, R] {
	return m.Select
}

func (m *Memoized[S, R]) matches(inputs []any) bool {
	if len(inputs) != len(m.inputs) {
		return false
	}
	for i := range inputs {
		if !m.equal(m.inputs[i], inputs[i]) {
			return false
		}
	}
	return true
}

// New1 creates a memoized selector over one input.
func New1[S, I1, R any](input1 Func[S, I1], combine func(I1) R, opts ...Option) *Memoized[S, R] {
	cfg := applyOptions(opts)
	return &Memoized[S, R]{
		equal: cfg.equal,
		eval: func(state S) ([]any, func() R) {
			v1 := input1(state)
			return []any{v1}, func() R { return combine(v1) }
		},
	}
}

// New2 creates a memoized selector over two inputs.
func New2[S, I1, I2, R any](
	input1 Func[S, I1],
	input2 Func[S, I2],
	combine func(I1, I2) R,
	opts ...Option,
) *Memoized[S, R] {
	cfg := applyOptions(opts)
	return &Memoized[S, R]{
		equal: cfg.equal,
		eval: func(state S) ([]any, func() R) {
			v1 := input1(state)
			v2 := input2(state)
			return []any{v1, v2}, func() R { return combine(v1, v2) }
		},
	}
}

// New3 creates a memoized selector over three inputs.
func New3[S, I1, I2, I3, R any](
	input1 Func[S, I1],
	input2 Func[S, I2],
	input3 Func[S, I3],
	combine func(I1, I2, I3) R,
	opts ...Option,
) *Memoized[S, R] {
	cfg := applyOptions(opts)
	return &Memoized[S, R]{
		equal: cfg.equal,
		eval: func(state S) ([]any, func() R) {
			v1 := input1(state)
			v2 := input2(state)
			v3 := input3(state)
			return []any{v1, v2, v3}, func() R { return combine(v1, v2, v3) }
		},
	}
}

// New4 creates a memoized selector over four inputs.
func New4[S, I1, I2, I3, I4, R any](
	input1 Func[S, I1],
	input2 Func[S, I2],
	input3 Func[S, I3],
	input4 Func[S, I4],
	combine func(I1, I2, I3, I4) R,
	opts ...Option,
) *Memoized[S, R] {
	cfg := applyOptions(opts)
	return &Memoized[S, R]{
		equal: cfg.equal,
		eval: func(state S) ([]any, func() R) {
			v1 := input1(state)
			v2 := input2(state)
			v3 := input3(state)
			v4 := input4(state)
			return []any{v1, v2, v3, v4}, func() R { return combine(v1, v2, v3, v4) }
		},
	}
}

// New5 creates a memoized selector over five inputs.
func New5[S, I1, I2, I3, I4, I5, R any](
	input1 Func[S, I1],
	input2 Func[S, I2],
	input3 Func[S, I3],
	input4 Func[S, I4],
	input5 Func[S, I5],
	combine func(I1, I2, I3, I4, I5) R,
	opts ...Option,
) *Memoized[S, R] {
	cfg := applyOptions(opts)
	return &Memoized[S, R]{
		equal: cfg.equal,
		eval: func(state S) ([]any, func() R) {
			v1 := input1(state)
			v2 := input2(state)
			v3 := input3(state)
			v4 := input4(state)
			v5 := input5(state)
			return []any{v1, v2, v3, v4, v5}, func() R { return combine(v1, v2, v3, v4, v5) }
		},
	}
}
