package store

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/statekit/statekit/observability"
)

// Store holds the current state and owns the dispatch pipeline. The state
// cell is the single shared mutable resource: it is replaced only from
// within dispatch calls, under a mutex, so concurrent dispatches from
// multiple goroutines never corrupt the stored value or apply a reducer
// against a stale snapshot.
//
// The middleware list is immutable after construction; the reducer can be
// swapped with ReplaceReducer. Reducers must not dispatch: the state lock
// is held across the reducer application.
type Store[S any] struct {
	mu      sync.RWMutex // guards state and reducer
	state   S
	reducer Reducer[S]

	dispatch Next // composed middleware chain, resolved once in New

	// middlewares is only populated between option application and chain
	// composition inside New.
	middlewares []Middleware[S]

	equals   func(a, b S) bool
	clock    func() time.Time
	observer observability.Observer
	logger   *slog.Logger
	buffer   int

	subsMu sync.Mutex
	subs   map[string]*Subscription[S]
	closed bool
}

// Option configures a Store during construction.
type Option[S any] func(*Store[S])

// WithMiddleware appends middlewares to the dispatch chain in order: the
// first middleware given sees every action first.
func WithMiddleware[S any](middlewares ...Middleware[S]) Option[S] {
	return func(s *Store[S]) {
		s.middlewares = append(s.middlewares, middlewares...)
	}
}

// WithObserver sets the observer receiving store lifecycle events.
func WithObserver[S any](observer observability.Observer) Option[S] {
	return func(s *Store[S]) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithLogger sets the slog logger used by the store and its middlewares.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(s *Store[S]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects the wall-clock capability used for event timestamps.
// Middlewares and thunks read it via Clock. Defaults to time.Now.
func WithClock[S any](now func() time.Time) Option[S] {
	return func(s *Store[S]) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithEquality overrides the state comparison used to decide whether a
// reducer result replaces the current state. The default compares by
// identity (pointer or comparable value); non-comparable states are
// conservatively treated as changed.
func WithEquality[S any](equals func(a, b S) bool) Option[S] {
	return func(s *Store[S]) {
		if equals != nil {
			s.equals = equals
		}
	}
}

// WithSubscriberBuffer sets the channel buffer handed to each subscriber.
// Delivery is lossless regardless of the buffer size; a larger buffer only
// reduces drainer wakeups for bursty updates.
func WithSubscriberBuffer[S any](n int) Option[S] {
	return func(s *Store[S]) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// New creates a Store with the given initial state and reducer. It fails
// fast with ErrNilReducer when reducer is nil; a store never exists in a
// half-configured state.
func New[S any](initial S, reducer Reducer[S], opts ...Option[S]) (*Store[S], error) {
	if reducer == nil {
		return nil, ErrNilReducer
	}

	s := &Store[S]{
		state:    initial,
		reducer:  reducer,
		equals:   identityEquals[S],
		clock:    time.Now,
		observer: observability.NoOpObserver{},
		logger:   slog.Default(),
		buffer:   1,
		subs:     make(map[string]*Subscription[S]),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.dispatch = compose(s, s.middlewares, s.reduce)
	s.middlewares = nil

	return s, nil
}

// Dispatch runs the action through the middleware chain; the terminal step
// applies the current reducer and replaces the state cell only if the
// result differs from the input. Safe for concurrent use; re-entrant
// dispatch from middlewares and listener effects is supported.
//
// A panicking reducer aborts the dispatch and propagates to the caller;
// the state cell keeps its pre-dispatch value.
func (s *Store[S]) Dispatch(action Action) {
	s.emit(EventDispatch, observability.LevelVerbose, map[string]any{
		"action": actionName(action),
	})
	s.dispatch(action)
}

// State returns the latest state value synchronously.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ReplaceReducer swaps the reducer used by future dispatches. It is
// exactly a pointer swap: prior state is not recomputed and the new
// reducer is not validated.
func (s *Store[S]) ReplaceReducer(reducer Reducer[S]) {
	s.mu.Lock()
	s.reducer = reducer
	s.mu.Unlock()

	s.emit(EventReducerReplace, observability.LevelInfo, nil)
}

// Subscribe registers a new subscriber. The subscription's channel starts
// with the latest known state and then receives every subsequent
// replacement in the order replacements occurred: no intermediate state is
// skipped for a live subscriber, whatever its consumption pace.
func (s *Store[S]) Subscribe() (*Subscription[S], error) {
	var sub *Subscription[S]
	err := func() error {
		// Holding the state read lock pins the current value so the seed
		// and later replacements cannot arrive out of order.
		s.mu.RLock()
		defer s.mu.RUnlock()
		s.subsMu.Lock()
		defer s.subsMu.Unlock()

		if s.closed {
			return ErrClosed
		}

		id := uuid.NewString()
		sub = newSubscription[S](s.buffer, func() { s.removeSubscriber(id) })
		s.subs[id] = sub
		sub.enqueue(s.state)
		return nil
	}()
	if err != nil {
		return nil, err
	}

	s.emit(EventSubscribe, observability.LevelVerbose, map[string]any{
		"subscribers": s.subscriberCount(),
	})
	return sub, nil
}

// Close tears down all subscriptions and rejects future ones. Dispatch
// remains functional: the state cell outlives its observers.
func (s *Store[S]) Close() error {
	s.subsMu.Lock()
	if s.closed {
		s.subsMu.Unlock()
		return nil
	}
	s.closed = true
	subs := make([]*Subscription[S], 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[string]*Subscription[S])
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.shutdown()
	}
	return nil
}

// Clock returns the injected wall-clock capability.
func (s *Store[S]) Clock() func() time.Time {
	return s.clock
}

// Observer returns the observer receiving store events. Middlewares emit
// their own events through it.
func (s *Store[S]) Observer() observability.Observer {
	return s.observer
}

// Logger returns the store's slog logger.
func (s *Store[S]) Logger() *slog.Logger {
	return s.logger
}

// reduce is the terminal step of the middleware chain.
func (s *Store[S]) reduce(action Action) {
	var changed bool
	var subscribers int

	func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		prev := s.state
		next := s.reducer(prev, action)
		if s.equals(prev, next) {
			return
		}

		s.state = next
		changed = true
		// Enqueue under the state lock so every subscriber sees
		// replacements in the exact order they occurred.
		subscribers = s.broadcast(next)
	}()

	if changed {
		s.emit(EventStateReplace, observability.LevelVerbose, map[string]any{
			"action":      actionName(action),
			"subscribers": subscribers,
		})
	}
}

// broadcast enqueues the new state to every live subscriber. Called with
// the state lock held.
func (s *Store[S]) broadcast(state S) int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		sub.enqueue(state)
	}
	return len(s.subs)
}

func (s *Store[S]) removeSubscriber(id string) {
	s.subsMu.Lock()
	_, existed := s.subs[id]
	delete(s.subs, id)
	s.subsMu.Unlock()

	if existed {
		s.emit(EventUnsubscribe, observability.LevelVerbose, map[string]any{
			"subscribers": s.subscriberCount(),
		})
	}
}

func (s *Store[S]) subscriberCount() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

func (s *Store[S]) emit(eventType observability.EventType, level observability.Level, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	s.observer.OnEvent(context.Background(), observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: s.clock(),
		Source:    "store",
		Data:      data,
	})
}

// identityEquals compares states by identity: pointers by address,
// comparable values with ==. Non-comparable states (slices, maps, or
// structs containing them) are treated as changed, which at worst causes
// an extra notification, never a missed one.
func identityEquals[S any](a, b S) bool {
	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)
	if !av.IsValid() || !bv.IsValid() {
		return av.IsValid() == bv.IsValid()
	}
	if av.Comparable() && bv.Comparable() {
		return av.Equal(bv)
	}
	return false
}

// actionName reports the action's discriminator for observability output.
func actionName(action Action) string {
	if action == nil {
		return "<nil>"
	}
	return reflect.TypeOf(action).String()
}
