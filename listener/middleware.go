package listener

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/statekit/statekit/observability"
	"github.com/statekit/statekit/store"
)

// EventEffectPanic is emitted when a listener effect panics.
const EventEffectPanic observability.EventType = "listener.effect.panic"

type entry[S any] struct {
	id        string
	match     Predicate
	effect    Effect[S]
	runBefore bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Middleware is a registry of listener entries behind a
// store.Middleware. The registry's lifetime is scoped to this value:
// unsubscribing an entry cancels its in-flight effect, and Shutdown
// cancels and waits for everything still running.
type Middleware[S any] struct {
	entries map[string]*entry[S]
	order   []string
	mu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

// NewMiddleware returns an empty listener middleware. Register effects
// with Add, then install the result of Handler on the store.
func NewMiddleware[S any]() *Middleware[S] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Middleware[S]{
		entries: make(map[string]*entry[S]),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Subscription is an owned handle for one registered listener.
type Subscription struct {
	id     string
	remove func()
	once   sync.Once
}

// ID returns the registration's opaque identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Unsubscribe removes the listener and cancels its in-flight effect, if
// any. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.remove)
}

// EntryOption adjusts a single registration.
type EntryOption func(*entryOptions)

type entryOptions struct {
	runBefore bool
}

// RunBefore makes the effect fire before the action reaches the reducer
// instead of after. Before-effects run as goroutines that are not
// awaited, so they race the reducer; they observe pre-action state
// through both GetState and GetOriginalState only if they win that race.
func RunBefore() EntryOption {
	return func(o *entryOptions) {
		o.runBefore = true
	}
}

// Add registers an effect to fire for every action match reports true
// for. By default the effect runs after the reducer has applied the
// action.
func (m *Middleware[S]) Add(match Predicate, effect Effect[S], opts ...EntryOption) *Subscription {
	options := entryOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	e := &entry[S]{
		id:        uuid.NewString(),
		match:     match,
		effect:    effect,
		runBefore: options.runBefore,
		ctx:       ctx,
		cancel:    cancel,
	}

	m.mu.Lock()
	m.entries[e.id] = e
	m.order = append(m.order, e.id)
	m.mu.Unlock()

	return &Subscription{
		id:     e.id,
		remove: func() { m.removeEntry(e.id) },
	}
}

// Len returns the number of registered listeners.
func (m *Middleware[S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear removes every registration, canceling in-flight effects.
func (m *Middleware[S]) Clear() {
	m.mu.Lock()
	for _, e := range m.entries {
		e.cancel()
	}
	m.entries = make(map[string]*entry[S])
	m.order = nil
	m.mu.Unlock()
}

// Shutdown cancels every effect and waits for running goroutines to
// exit. Returns an error if they do not finish within timeout.
func (m *Middleware[S]) Shutdown(timeout time.Duration) error {
	m.cancel()

	finished := make(chan struct{})
	go func() {
		m.tasks.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("listener shutdown timeout after %v", timeout)
	}
}

// Handler returns the store middleware backed by this registry.
func (m *Middleware[S]) Handler() store.Middleware[S] {
	return func(s *store.Store[S], action store.Action, next store.Next) {
		original := s.State()
		before, after := m.matching(action)

		for _, e := range before {
			m.launch(s, e, action, original)
		}

		next(action)

		for _, e := range after {
			m.launch(s, e, action, original)
		}
	}
}

func (m *Middleware[S]) matching(action store.Action) (before, after []*entry[S]) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		e := m.entries[id]
		if !e.match(action) {
			continue
		}
		if e.runBefore {
			before = append(before, e)
		} else {
			after = append(after, e)
		}
	}
	return before, after
}

func (m *Middleware[S]) launch(s *store.Store[S], e *entry[S], action store.Action, original S) {
	if e.ctx.Err() != nil {
		return
	}

	api := API[S]{
		Dispatch:         s.Dispatch,
		GetState:         s.State,
		GetOriginalState: func() S { return original },
		fork: func(task func(ctx context.Context)) {
			m.tasks.Add(1)
			go func() {
				defer m.tasks.Done()
				defer m.recoverPanic(s, e.id)
				task(e.ctx)
			}()
		},
	}

	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()
		defer m.recoverPanic(s, e.id)
		e.effect(e.ctx, action, api)
	}()
}

// Effect panics are caught and logged here so one listener's failure
// never blocks other listeners or the dispatch flow.
func (m *Middleware[S]) recoverPanic(s *store.Store[S], listenerID string) {
	r := recover()
	if r == nil {
		return
	}

	s.Logger().Error(
		"listener effect panicked",
		slog.String("listener_id", listenerID),
		slog.Any("panic", r),
	)
	s.Observer().OnEvent(context.Background(), observability.Event{
		Type:      EventEffectPanic,
		Level:     observability.LevelWarning,
		Timestamp: s.Clock()(),
		Source:    "listener",
		Data: map[string]any{
			"listener_id": listenerID,
			"panic":       fmt.Sprint(r),
		},
	})
}

func (m *Middleware[S]) removeEntry(id string) {
	m.mu.Lock()
	e, exists := m.entries[id]
	if exists {
		delete(m.entries, id)
		for i, other := range m.order {
			if other == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	if exists {
		e.cancel()
	}
}
