// Package logging provides a pure-observability middleware that records
// a snapshot of state before and after each action together with the
// time the rest of the pipeline took. It never alters the action or the
// state.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/statekit/statekit/store"
)

// Sink receives one line per dispatched action.
type Sink interface {
	Log(tag, message string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(tag, message string)

func (f SinkFunc) Log(tag, message string) {
	f(tag, message)
}

// StdoutSink writes log lines to standard output.
func StdoutSink() Sink {
	return SinkFunc(func(tag, message string) {
		fmt.Fprintf(os.Stdout, "[%s] %s\n", tag, message)
	})
}

// SlogSink routes log lines through a slog.Logger at Debug level.
func SlogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(tag, message string) {
		logger.Debug(message, slog.String("tag", tag))
	})
}

// Record is one captured dispatch: the action, the state on either side
// of it, and how long the downstream pipeline took.
type Record struct {
	Action      store.Action
	ActionName  string
	StateBefore any
	StateAfter  any
	Elapsed     time.Duration
	At          time.Time
}

// Middleware records dispatches to a Sink and keeps a bounded in-memory
// log of recent Records for inspection in tests and debug tooling.
type Middleware[S any] struct {
	tag     string
	sink    Sink
	keep    int
	mu      sync.Mutex
	records []Record
}

// Option adjusts a logging middleware.
type Option func(*options)

type options struct {
	tag  string
	sink Sink
	keep int
}

// WithTag sets the tag passed to the sink. Defaults to "store".
func WithTag(tag string) Option {
	return func(o *options) {
		o.tag = tag
	}
}

// WithSink replaces the default stdout sink.
func WithSink(sink Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithHistory sets how many Records are retained, oldest evicted first.
// Zero disables retention. Defaults to 128.
func WithHistory(n int) Option {
	return func(o *options) {
		o.keep = n
	}
}

// NewMiddleware returns a logging middleware. Install the result of
// Handler on the store, usually as the first middleware so that it
// observes the entire remaining pipeline.
func NewMiddleware[S any](opts ...Option) *Middleware[S] {
	options := options{
		tag:  "store",
		sink: StdoutSink(),
		keep: 128,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Middleware[S]{
		tag:  options.tag,
		sink: options.sink,
		keep: options.keep,
	}
}

// Handler returns the store middleware.
func (m *Middleware[S]) Handler() store.Middleware[S] {
	return func(s *store.Store[S], action store.Action, next store.Next) {
		before := s.State()
		start := s.Clock()()

		next(action)

		after := s.State()
		elapsed := s.Clock()().Sub(start)
		name := actionName(action)

		m.sink.Log(m.tag, fmt.Sprintf("%s took %v: %+v -> %+v", name, elapsed, before, after))
		m.record(Record{
			Action:      action,
			ActionName:  name,
			StateBefore: before,
			StateAfter:  after,
			Elapsed:     elapsed,
			At:          start,
		})
	}
}

// Records returns a copy of the retained dispatch records, oldest first.
func (m *Middleware[S]) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Reset discards the retained records.
func (m *Middleware[S]) Reset() {
	m.mu.Lock()
	m.records = nil
	m.mu.Unlock()
}

func (m *Middleware[S]) record(r Record) {
	if m.keep == 0 {
		return
	}
	m.mu.Lock()
	m.records = append(m.records, r)
	if len(m.records) > m.keep {
		m.records = m.records[len(m.records)-m.keep:]
	}
	m.mu.Unlock()
}

func actionName(action store.Action) string {
	if action == nil {
		return "<nil>"
	}
	t := reflect.TypeOf(action)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
