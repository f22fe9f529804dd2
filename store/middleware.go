package store

// Middleware intercepts actions between Dispatch and the reducer. Calling
// next(action) continues the chain; returning without calling next
// suppresses the action from the reducer and all later middlewares.
//
// Given middlewares [m1, m2, ..., mN], the composed dispatcher is m1
// wrapping (m2 wrapping (... wrapping the reducer application)): m1 sees
// every action first and decides whether and when the rest of the chain
// runs. Side-effecting middlewares must therefore be ordered deliberately;
// a logging middleware placed first observes the effects of the entire
// remaining pipeline.
type Middleware[S any] func(s *Store[S], action Action, next Next)

// compose right-folds the middlewares into a single dispatch function
// terminating in the reducer application. The chain is resolved once at
// store construction; re-entrant dispatch simply re-enters the composed
// function from the top, so there is no shared "currently dispatching"
// flag to deadlock on.
func compose[S any](s *Store[S], middlewares []Middleware[S], terminal Next) Next {
	next := terminal
	for i := len(middlewares) - 1; i >= 0; i-- {
		m := middlewares[i]
		inner := next
		next = func(action Action) {
			m(s, action, inner)
		}
	}
	return next
}
