// Package store implements a unidirectional state container: a single
// state cell mutated only by pure reducers, a middleware chain wrapping
// dispatch, and an ordered broadcast stream of state replacements.
//
// The flow is: caller → Dispatch(action) → middleware chain → reducer →
// state replaced (if changed) → subscribers notified. Middlewares may
// short-circuit, transform, or forward actions; the reducer application is
// always the innermost terminal step.
package store

// Action is an immutable intent to change state. Any value can serve as an
// action; its runtime type is the discriminator. Reducers match actions
// with type switches (see OnAction), so each feature defines its action
// family as a closed set of concrete types.
type Action any

// Next continues the middleware chain with the given action. A middleware
// that does not call Next suppresses the action from the reducer and all
// later middlewares.
type Next func(action Action)

// Dispatcher is the minimal dispatch capability handed to collaborators
// that must feed actions back into a store without holding the full typed
// store reference (thunks, listener effects, UI bindings).
type Dispatcher interface {
	Dispatch(action Action)
}
