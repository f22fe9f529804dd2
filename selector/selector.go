// Package selector implements memoized derivation functions over store
// state. A memoized selector caches the result of its last computation
// keyed by the values of its input selectors: when every input is
// unchanged since the previous call the cached result is returned without
// recomputing.
//
// The cache is single-slot (last call only), not an LRU. A selector
// instance invoked with rapidly alternating inputs recomputes on every
// call; that thrashing is an accepted tradeoff of the design, not a bug.
package selector

import "reflect"

// Func is a derivation from state to a value. A plain Func carries no
// memoization; it is the building block composed into memoized selectors.
type Func[S, R any] func(state S) R

// From wraps a plain derivation function with no memoization, useful as
// an input to composition.
func From[S, R any](fn func(state S) R) Func[S, R] {
	return fn
}

// Equality compares an input value from the previous computation with the
// current one. The default is deep value equality; override it per
// selector with WithEquality for custom or cheaper comparisons.
type Equality func(prev, next any) bool

// DeepEqual is the default Equality: structural value equality for
// sequences, mappings, and records, via reflect.DeepEqual.
func DeepEqual(prev, next any) bool {
	return reflect.DeepEqual(prev, next)
}

// Option configures a memoized selector during construction.
type Option func(*settings)

type settings struct {
	equal Equality
}

// WithEquality overrides the input comparison for one selector.
func WithEquality(equal Equality) Option {
	return func(s *settings) {
		if equal != nil {
			s.equal = equal
		}
	}
}

func applyOptions(opts []Option) settings {
	s := settings{equal: DeepEqual}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
