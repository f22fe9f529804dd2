package entity

import (
	"maps"
	"slices"
)

// Adapter selectors are plain O(1) or O(n) reads with no caching.
// Compose them with the selector package to memoize derived views.

// SelectAll returns every entity in collection order.
func (a Adapter[T]) SelectAll(state State[T]) []T {
	out := make([]T, 0, len(state.IDs))
	for _, id := range state.IDs {
		out = append(out, state.Entities[id])
	}
	return out
}

// SelectByID returns the entity with the given id, if present.
func (a Adapter[T]) SelectByID(state State[T], id string) (T, bool) {
	e, ok := state.Entities[id]
	return e, ok
}

// SelectIDs returns a copy of the ordered id list.
func (a Adapter[T]) SelectIDs(state State[T]) []string {
	return slices.Clone(state.IDs)
}

// SelectEntities returns a copy of the id→entity map.
func (a Adapter[T]) SelectEntities(state State[T]) map[string]T {
	return maps.Clone(state.Entities)
}

// SelectTotal returns the number of entities in the collection.
func (a Adapter[T]) SelectTotal(state State[T]) int {
	return len(state.IDs)
}
