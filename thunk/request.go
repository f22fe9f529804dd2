package thunk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/statekit/statekit/observability"
	"github.com/statekit/statekit/store"
)

// Observability event types emitted by the thunk runtime.
const (
	EventSkipped observability.EventType = "thunk.skipped"
	EventAborted observability.EventType = "thunk.aborted"
	EventStarted observability.EventType = "thunk.started"
	EventSettled observability.EventType = "thunk.settled"
)

// ErrAborted is the cancellation cause recorded when Abort is called
// without an explicit reason.
var ErrAborted = errors.New("thunk: aborted")

// Request is one invocation of a thunk Definition. It doubles as the
// dispatchable action recognized by the thunk middleware and as the
// caller's handle for cooperative cancellation and completion tracking.
//
// The lifecycle runs at most once per request: re-dispatching an already
// started request is a no-op.
type Request[S, Arg, Result any] struct {
	def       *Definition[S, Arg, Result]
	arg       Arg
	requestID string

	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}
	once   sync.Once
}

// RequestID returns the generated id shared by all lifecycle actions of
// this invocation.
func (r *Request[S, Arg, Result]) RequestID() string {
	return r.requestID
}

// Arg returns the invocation argument.
func (r *Request[S, Arg, Result]) Arg() Arg {
	return r.arg
}

// Abort requests cooperative cancellation with the given cause (ErrAborted
// when nil). The payload observes it through its context; the lifecycle
// settles as REJECTED with Canceled set once the payload yields.
func (r *Request[S, Arg, Result]) Abort(cause error) {
	if cause == nil {
		cause = ErrAborted
	}
	r.cancel(cause)
}

// Done is closed once the lifecycle has settled (fulfilled, rejected, or
// skipped by the definition's condition).
func (r *Request[S, Arg, Result]) Done() <-chan struct{} {
	return r.done
}

// run executes the lifecycle against the given store. Called by the thunk
// middleware on its own goroutine.
func (r *Request[S, Arg, Result]) run(s *store.Store[S]) {
	r.once.Do(func() {
		defer close(r.done)
		defer r.cancel(nil)

		d := r.def

		if d.condition != nil && !d.condition(r.arg, s.State()) {
			// Skipped entirely: no lifecycle action is dispatched,
			// not even a marker.
			emit(s, EventSkipped, observability.LevelVerbose, r.requestID, nil)
			return
		}

		emit(s, EventStarted, observability.LevelVerbose, r.requestID, nil)
		s.Dispatch(Pending[Arg]{
			TypePrefix: d.typePrefix,
			RequestID:  r.requestID,
			Arg:        r.arg,
		})

		api := API[S]{
			Dispatch:  s.Dispatch,
			GetState:  s.State,
			RequestID: r.requestID,
			Extra:     d.extra,
		}

		result, err := r.protect(api)
		r.settle(s, result, err)
	})
}

// protect runs the payload, converting panics into errors so a failing
// thunk always settles instead of crashing the store.
func (r *Request[S, Arg, Result]) protect(api API[S]) (result Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("thunk panic: %v", rec)
		}
	}()
	return r.def.payload(r.ctx, r.arg, api)
}

// settle dispatches exactly one terminal lifecycle action.
func (r *Request[S, Arg, Result]) settle(s *store.Store[S], result Result, err error) {
	d := r.def

	if err == nil {
		// Context cancellation the payload never observed still maps to
		// a canceled rejection.
		if cause := context.Cause(r.ctx); cause != nil && r.ctx.Err() != nil {
			r.reject(s, cause, true)
			return
		}
		s.Dispatch(Fulfilled[Arg, Result]{
			TypePrefix: d.typePrefix,
			RequestID:  r.requestID,
			Arg:        r.arg,
			Result:     result,
		})
		emit(s, EventSettled, observability.LevelVerbose, r.requestID, map[string]any{"status": string(StatusFulfilled)})
		return
	}

	var fulfill *earlyFulfill
	if errors.As(err, &fulfill) {
		if value, ok := fulfill.value.(Result); ok {
			s.Dispatch(Fulfilled[Arg, Result]{
				TypePrefix: d.typePrefix,
				RequestID:  r.requestID,
				Arg:        r.arg,
				Result:     value,
			})
			emit(s, EventSettled, observability.LevelVerbose, r.requestID, map[string]any{"status": string(StatusFulfilled)})
			return
		}
		r.reject(s, fmt.Errorf("thunk: FulfillWith value has wrong type %T", fulfill.value), false)
		return
	}

	var rejection *Rejection
	if errors.As(err, &rejection) {
		r.reject(s, rejection, false)
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || r.ctx.Err() != nil {
		cause := context.Cause(r.ctx)
		if cause == nil {
			cause = err
		}
		emit(s, EventAborted, observability.LevelVerbose, r.requestID, nil)
		r.reject(s, cause, true)
		return
	}

	r.reject(s, err, false)
}

func (r *Request[S, Arg, Result]) reject(s *store.Store[S], err error, canceled bool) {
	s.Dispatch(Rejected[Arg]{
		TypePrefix: r.def.typePrefix,
		RequestID:  r.requestID,
		Arg:        r.arg,
		Err:        err,
		Canceled:   canceled,
	})
	emit(s, EventSettled, observability.LevelVerbose, r.requestID, map[string]any{
		"status":   string(StatusRejected),
		"canceled": canceled,
	})
}

func emit[S any](s *store.Store[S], eventType observability.EventType, level observability.Level, requestID string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["request_id"] = requestID
	s.Observer().OnEvent(context.Background(), observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: s.Clock()(),
		Source:    "thunk",
		Data:      data,
	})
}
