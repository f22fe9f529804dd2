package thunk

import "github.com/statekit/statekit/store"

// runnable is the capability the middleware recognizes on dispatched
// thunk requests.
type runnable[S any] interface {
	run(s *store.Store[S])
}

// Middleware returns the thunk middleware for stores of state S. Thunk
// requests are scheduled on their own goroutine and never forwarded to
// the rest of the chain: dispatching a thunk returns immediately and the
// reducer never sees the request itself, only its lifecycle actions.
// Every other action passes straight through.
func Middleware[S any]() store.Middleware[S] {
	return func(s *store.Store[S], action store.Action, next store.Next) {
		if request, ok := action.(runnable[S]); ok {
			go request.run(s)
			return
		}
		next(action)
	}
}
