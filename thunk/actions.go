// Package thunk wraps asynchronous operations into a
// pending/fulfilled/rejected action sequence dispatched through a store.
//
// A Definition names the operation with a type prefix and holds its
// payload function. Each invocation is an ephemeral Request with a
// generated request id: PENDING is dispatched first, the payload runs as
// an independent goroutine, and exactly one of FULFILLED or REJECTED
// follows. Cancellation is cooperative via the request's context and maps
// to REJECTED with a cancellation-flavored error.
package thunk

import "fmt"

// Status identifies a lifecycle phase of a thunk request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusRejected  Status = "rejected"
)

// Pending is dispatched when a request starts, before the payload runs.
type Pending[Arg any] struct {
	TypePrefix string
	RequestID  string
	Arg        Arg
}

// Fulfilled is dispatched when the payload returns normally or
// short-circuits with FulfillWith.
type Fulfilled[Arg, Result any] struct {
	TypePrefix string
	RequestID  string
	Arg        Arg
	Result     Result
}

// Rejected is dispatched when the payload fails, short-circuits with
// RejectWith, or is canceled. Canceled distinguishes cooperative aborts
// from ordinary failures.
type Rejected[Arg any] struct {
	TypePrefix string
	RequestID  string
	Arg        Arg
	Err        error
	Canceled   bool
}

// Rejection is the error carried by a Rejected action produced through
// RejectWith: a deliberate rejection with a payload value rather than a
// failure.
type Rejection struct {
	Value any
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("thunk rejected with value: %v", r.Value)
}

// RejectWith returns an error that short-circuits the running payload
// into the rejected lifecycle action carrying value. Return it from the
// payload function; it is an explicit exit value, not a panic.
func RejectWith(value any) error {
	return &Rejection{Value: value}
}

type earlyFulfill struct {
	value any
}

func (e *earlyFulfill) Error() string {
	return fmt.Sprintf("thunk fulfilled with value: %v", e.value)
}

// FulfillWith returns an error that short-circuits the running payload
// into the fulfilled lifecycle action carrying value instead of the
// payload's normal return value. value must be the thunk's Result type;
// anything else turns into a rejection.
func FulfillWith(value any) error {
	return &earlyFulfill{value: value}
}
