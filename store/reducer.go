package store

// Reducer computes the next state from the current state and an action.
// Reducers must be total and pure: same inputs, same output, no hidden
// mutable context, and they must never mutate the state they receive.
type Reducer[S any] func(state S, action Action) S

// CombineReducers folds reducers left to right: each subsequent reducer
// receives the state returned by the previous one and the same action.
// Later reducers can observe and override earlier ones, so order is
// significant and callers should document it.
func CombineReducers[S any](reducers ...Reducer[S]) Reducer[S] {
	return func(state S, action Action) S {
		for _, r := range reducers {
			state = r(state, action)
		}
		return state
	}
}

// When guards a reducer with a predicate: the action reaches the inner
// reducer only when the predicate reports true, otherwise the state passes
// through unchanged. It never panics on its own; a nil predicate admits
// every action.
func When[S any](predicate func(Action) bool, reducer Reducer[S]) Reducer[S] {
	return func(state S, action Action) S {
		if predicate != nil && !predicate(action) {
			return state
		}
		return reducer(state, action)
	}
}

// OnAction lifts a reducer over one concrete action type into a Reducer.
// Actions of any other type pass the state through untouched. This is the
// generic fallback bucket that lets independent feature reducers ignore
// actions they do not care about when composed with CombineReducers.
func OnAction[S any, A Action](reduce func(state S, action A) S) Reducer[S] {
	return func(state S, action Action) S {
		if a, ok := action.(A); ok {
			return reduce(state, a)
		}
		return state
	}
}
