// Package entity implements normalized collection state: an ordered id
// list plus an id→entity map, mutated only through pure adapter
// operations. Normalization makes point lookups and updates O(1) at the
// cost of maintaining the id ordering on writes.
package entity

import (
	"maps"
	"slices"
)

// State is a normalized collection. IDs holds the collection order and
// contains exactly the keys of Entities, without duplicates. The order is
// either insertion order or the adapter's comparator order, fixed per
// adapter instance.
//
// State values are never mutated by adapter operations; every operation
// returns a new value sharing nothing mutable with its input.
type State[T any] struct {
	IDs      []string
	Entities map[string]T
}

// clone returns an independent copy of the state.
func (s State[T]) clone() State[T] {
	out := State[T]{
		IDs:      slices.Clone(s.IDs),
		Entities: maps.Clone(s.Entities),
	}
	if out.Entities == nil {
		out.Entities = make(map[string]T)
	}
	return out
}
