package entity

import (
	"errors"
	"slices"
)

// ErrNilSelectID is returned by NewAdapter when no identity extractor is
// supplied.
var ErrNilSelectID = errors.New("entity: selectID must not be nil")

// Adapter provides pure CRUD and upsert operations over a normalized
// State. It is constructed with an identity extractor and an optional
// total-ordering comparator.
//
// Ordering policy: with a comparator, IDs is recomputed by sorting all
// current entities after every mutation (O(n log n), acceptable for the
// bounded collection sizes this targets). Without one, insertion order is
// preserved: appended on add, kept on update, filtered on remove.
type Adapter[T any] struct {
	selectID func(T) string
	compare  func(a, b T) int
}

// AdapterOption configures an Adapter during construction.
type AdapterOption[T any] func(*Adapter[T])

// WithSortComparer sets a total ordering for the collection. compare
// follows the cmp convention: negative when a sorts before b.
func WithSortComparer[T any](compare func(a, b T) int) AdapterOption[T] {
	return func(a *Adapter[T]) {
		a.compare = compare
	}
}

// NewAdapter creates an Adapter keyed by the given identity extractor.
func NewAdapter[T any](selectID func(T) string, opts ...AdapterOption[T]) (Adapter[T], error) {
	if selectID == nil {
		return Adapter[T]{}, ErrNilSelectID
	}
	a := Adapter[T]{selectID: selectID}
	for _, opt := range opts {
		opt(&a)
	}
	return a, nil
}

// InitialState returns a collection seeded with the given entities,
// deduplicated by id with first-write-wins semantics.
func (a Adapter[T]) InitialState(seed ...T) State[T] {
	state := State[T]{Entities: make(map[string]T, len(seed))}
	return a.AddMany(state, seed...)
}

// AddOne inserts the entity unless its id is already present. Existing
// entities are never overwritten by add.
func (a Adapter[T]) AddOne(state State[T], e T) State[T] {
	return a.AddMany(state, e)
}

// AddMany inserts every entity whose id is not yet present, in order.
func (a Adapter[T]) AddMany(state State[T], es ...T) State[T] {
	fresh := make([]T, 0, len(es))
	seen := make(map[string]bool, len(es))
	for _, e := range es {
		id := a.selectID(e)
		if seen[id] {
			continue
		}
		if _, exists := state.Entities[id]; exists {
			continue
		}
		seen[id] = true
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return state
	}

	next := state.clone()
	for _, e := range fresh {
		id := a.selectID(e)
		next.Entities[id] = e
		next.IDs = append(next.IDs, id)
	}
	return a.resort(next)
}

// SetAll replaces the collection wholesale, discarding prior ids and
// entities entirely.
func (a Adapter[T]) SetAll(state State[T], es ...T) State[T] {
	next := State[T]{
		IDs:      make([]string, 0, len(es)),
		Entities: make(map[string]T, len(es)),
	}
	for _, e := range es {
		id := a.selectID(e)
		if _, exists := next.Entities[id]; !exists {
			next.IDs = append(next.IDs, id)
		}
		next.Entities[id] = e
	}
	return a.resort(next)
}

// UpdateOne applies patch to the entity with the given id; a no-op when
// the id is absent. If the patch changes the entity's own identity to a
// different id, the entry is re-keyed: the old id is removed and the new
// one inserted, replacing the old position in insertion order or resorted
// under a comparator. Re-keying onto an id that already exists replaces
// that entity.
func (a Adapter[T]) UpdateOne(state State[T], id string, patch func(T) T) State[T] {
	current, exists := state.Entities[id]
	if !exists {
		return state
	}

	updated := patch(current)
	newID := a.selectID(updated)

	next := state.clone()
	if newID == id {
		next.Entities[id] = updated
		return a.resort(next)
	}

	// Re-keyed: drop the old entry and place the new id at its position.
	delete(next.Entities, id)
	if _, collision := next.Entities[newID]; collision {
		next.IDs = slices.DeleteFunc(next.IDs, func(existing string) bool {
			return existing == newID
		})
	}
	next.Entities[newID] = updated
	for i, existing := range next.IDs {
		if existing == id {
			next.IDs[i] = newID
			break
		}
	}
	return a.resort(next)
}

// UpdateMany applies patch to each present id in order; absent ids are
// skipped silently.
func (a Adapter[T]) UpdateMany(state State[T], ids []string, patch func(T) T) State[T] {
	next := state
	for _, id := range ids {
		next = a.UpdateOne(next, id, patch)
	}
	return next
}

// UpsertOne inserts the entity when absent and replaces it when present —
// the safe combination of add and update.
func (a Adapter[T]) UpsertOne(state State[T], e T) State[T] {
	return a.UpsertMany(state, e)
}

// UpsertMany inserts or replaces every given entity.
func (a Adapter[T]) UpsertMany(state State[T], es ...T) State[T] {
	if len(es) == 0 {
		return state
	}

	next := state.clone()
	for _, e := range es {
		id := a.selectID(e)
		if _, exists := next.Entities[id]; !exists {
			next.IDs = append(next.IDs, id)
		}
		next.Entities[id] = e
	}
	return a.resort(next)
}

// RemoveOne deletes the entity with the given id; a no-op when absent.
func (a Adapter[T]) RemoveOne(state State[T], id string) State[T] {
	return a.RemoveMany(state, id)
}

// RemoveMany deletes every present id; missing ids are skipped silently.
func (a Adapter[T]) RemoveMany(state State[T], ids ...string) State[T] {
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, exists := state.Entities[id]; exists {
			doomed[id] = true
		}
	}
	if len(doomed) == 0 {
		return state
	}

	next := state.clone()
	for id := range doomed {
		delete(next.Entities, id)
	}
	next.IDs = slices.DeleteFunc(next.IDs, func(id string) bool {
		return doomed[id]
	})
	return next
}

// RemoveAll resets the collection to empty.
func (a Adapter[T]) RemoveAll(state State[T]) State[T] {
	return State[T]{Entities: make(map[string]T)}
}

// resort recomputes the id ordering under the comparator, if set. Removal
// never changes relative order, so callers on the remove path skip it.
func (a Adapter[T]) resort(state State[T]) State[T] {
	if a.compare == nil {
		return state
	}
	slices.SortStableFunc(state.IDs, func(x, y string) int {
		return a.compare(state.Entities[x], state.Entities[y])
	})
	return state
}
