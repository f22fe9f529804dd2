// Package listener provides a middleware that runs registered side
// effects in response to dispatched actions. Each registration pairs a
// match predicate with an effect procedure; matching effects run as
// independent goroutines either before or after the action reaches the
// reducer. Effects never block dispatch and their panics never
// propagate to the dispatcher.
package listener

import (
	"context"

	"github.com/statekit/statekit/store"
)

// Predicate reports whether a listener should fire for the given
// action.
type Predicate func(action store.Action) bool

// ActionOf matches every action of the concrete type A.
func ActionOf[A store.Action]() Predicate {
	return func(action store.Action) bool {
		_, ok := action.(A)
		return ok
	}
}

// AnyOf matches when at least one of the given predicates matches.
func AnyOf(predicates ...Predicate) Predicate {
	return func(action store.Action) bool {
		for _, p := range predicates {
			if p(action) {
				return true
			}
		}
		return false
	}
}

// API is handed to a running effect. GetState reads the live store
// state; GetOriginalState returns the state as of before the action
// that triggered the effect was dispatched.
type API[S any] struct {
	Dispatch         store.Next
	GetState         func() S
	GetOriginalState func() S

	fork func(task func(ctx context.Context))
}

// Fork spawns task as a nested goroutine tracked by the owning
// middleware. The task shares the effect's cancellation signal and is
// waited on during Shutdown.
func (a API[S]) Fork(task func(ctx context.Context)) {
	a.fork(task)
}

// Effect is a listener's side-effect procedure. ctx is canceled when
// the listener is unsubscribed or the middleware shuts down.
type Effect[S any] func(ctx context.Context, action store.Action, api API[S])
