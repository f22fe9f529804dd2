package store

import "errors"

// ErrNilReducer is returned by New when no reducer is supplied. A store
// must never exist in a half-configured state.
var ErrNilReducer = errors.New("store: reducer must not be nil")

// ErrClosed is returned by Subscribe after Close has been called.
var ErrClosed = errors.New("store: closed")
