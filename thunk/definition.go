package thunk

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/statekit/statekit/store"
)

// ErrEmptyTypePrefix is returned by New when the type prefix is blank.
var ErrEmptyTypePrefix = errors.New("thunk: type prefix must not be empty")

// ErrNilPayload is returned by New when no payload function is supplied.
var ErrNilPayload = errors.New("thunk: payload must not be nil")

// API exposes the store capabilities available to a running payload.
type API[S any] struct {
	// Dispatch feeds actions back into the store.
	Dispatch store.Next
	// GetState reads the store's live state.
	GetState func() S
	// RequestID identifies this invocation.
	RequestID string
	// Extra is the optional value configured with WithExtra.
	Extra any
}

// Payload is the user-supplied asynchronous operation. The context is
// canceled on abort; check it at suspension points — cancellation is
// cooperative, never preemptive. Returning (result, nil) fulfills the
// request; any error rejects it, with RejectWith and FulfillWith as the
// explicit short-circuit exits.
type Payload[S, Arg, Result any] func(ctx context.Context, arg Arg, api API[S]) (Result, error)

// Definition is a reusable async thunk: a type prefix naming the action
// family plus the payload to run per invocation. Create one per logical
// operation and dispatch requests built with With or Start.
type Definition[S, Arg, Result any] struct {
	typePrefix string
	payload    Payload[S, Arg, Result]
	condition  func(arg Arg, state S) bool
	extra      any
	clock      func() time.Time
	counter    atomic.Uint64
}

// Option configures a Definition during construction.
type Option[S, Arg, Result any] func(*Definition[S, Arg, Result])

// WithCondition gates invocations: when the predicate reports false for
// (arg, current state), the request is skipped entirely — no PENDING,
// FULFILLED, or REJECTED action is dispatched at all.
func WithCondition[S, Arg, Result any](condition func(arg Arg, state S) bool) Option[S, Arg, Result] {
	return func(d *Definition[S, Arg, Result]) {
		d.condition = condition
	}
}

// WithExtra attaches an arbitrary value handed to every payload via
// API.Extra (service handles, fakes in tests).
func WithExtra[S, Arg, Result any](extra any) Option[S, Arg, Result] {
	return func(d *Definition[S, Arg, Result]) {
		d.extra = extra
	}
}

// WithClock injects the wall-clock capability used in request id
// generation. Defaults to time.Now.
func WithClock[S, Arg, Result any](now func() time.Time) Option[S, Arg, Result] {
	return func(d *Definition[S, Arg, Result]) {
		if now != nil {
			d.clock = now
		}
	}
}

// New creates a thunk Definition with the given type prefix and payload.
func New[S, Arg, Result any](typePrefix string, payload Payload[S, Arg, Result], opts ...Option[S, Arg, Result]) (*Definition[S, Arg, Result], error) {
	if typePrefix == "" {
		return nil, ErrEmptyTypePrefix
	}
	if payload == nil {
		return nil, ErrNilPayload
	}

	d := &Definition[S, Arg, Result]{
		typePrefix: typePrefix,
		payload:    payload,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// TypePrefix returns the action-family name of this definition.
func (d *Definition[S, Arg, Result]) TypePrefix() string {
	return d.typePrefix
}

// With builds a dispatchable Request for one invocation with the given
// argument. The request id is generated immediately; the lifecycle starts
// when the request is dispatched through a store carrying the thunk
// middleware.
func (d *Definition[S, Arg, Result]) With(arg Arg) *Request[S, Arg, Result] {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Request[S, Arg, Result]{
		def:       d,
		arg:       arg,
		requestID: d.nextRequestID(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start builds a Request and dispatches it in one step, returning the
// request handle for abort and completion tracking.
func (d *Definition[S, Arg, Result]) Start(s *store.Store[S], arg Arg) *Request[S, Arg, Result] {
	r := d.With(arg)
	s.Dispatch(r)
	return r
}

// MatchPending reports whether the action is a PENDING action of this
// definition.
func (d *Definition[S, Arg, Result]) MatchPending(action store.Action) (Pending[Arg], bool) {
	if p, ok := action.(Pending[Arg]); ok && p.TypePrefix == d.typePrefix {
		return p, true
	}
	return Pending[Arg]{}, false
}

// MatchFulfilled reports whether the action is a FULFILLED action of this
// definition.
func (d *Definition[S, Arg, Result]) MatchFulfilled(action store.Action) (Fulfilled[Arg, Result], bool) {
	if f, ok := action.(Fulfilled[Arg, Result]); ok && f.TypePrefix == d.typePrefix {
		return f, true
	}
	return Fulfilled[Arg, Result]{}, false
}

// MatchRejected reports whether the action is a REJECTED action of this
// definition.
func (d *Definition[S, Arg, Result]) MatchRejected(action store.Action) (Rejected[Arg], bool) {
	if r, ok := action.(Rejected[Arg]); ok && r.TypePrefix == d.typePrefix {
		return r, true
	}
	return Rejected[Arg]{}, false
}

// nextRequestID builds the cooperative-unique request id: type prefix,
// monotonic counter, and timestamp.
func (d *Definition[S, Arg, Result]) nextRequestID() string {
	return fmt.Sprintf("%s-%d-%d", d.typePrefix, d.counter.Add(1), d.clock().UnixMilli())
}
