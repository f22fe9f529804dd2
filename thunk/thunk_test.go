package thunk_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/statekit/statekit/store"
	"github.com/statekit/statekit/thunk"
)

type searchState struct {
	Busy    bool
	Results []string
	Err     string
}

func searchReducer(find *thunk.Definition[searchState, string, []string]) store.Reducer[searchState] {
	return func(s searchState, action store.Action) searchState {
		if _, ok := find.MatchPending(action); ok {
			return searchState{Busy: true}
		}
		if f, ok := find.MatchFulfilled(action); ok {
			return searchState{Results: f.Result}
		}
		if r, ok := find.MatchRejected(action); ok {
			return searchState{Err: r.Err.Error()}
		}
		return s
	}
}

// recorder captures every action reaching the tail of the middleware
// chain, in order.
type recorder struct {
	mu      sync.Mutex
	actions []store.Action
}

func (r *recorder) middleware() store.Middleware[searchState] {
	return func(s *store.Store[searchState], action store.Action, next store.Next) {
		r.mu.Lock()
		r.actions = append(r.actions, action)
		r.mu.Unlock()
		next(action)
	}
}

func (r *recorder) recorded() []store.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Action, len(r.actions))
	copy(out, r.actions)
	return out
}

func newSearchStore(t *testing.T, find *thunk.Definition[searchState, string, []string], rec *recorder) *store.Store[searchState] {
	t.Helper()
	s, err := store.New(searchState{}, searchReducer(find),
		store.WithMiddleware(thunk.Middleware[searchState](), rec.middleware()),
	)
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	return s
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for thunk to settle")
	}
}

func TestNew_Validation(t *testing.T) {
	payload := func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
		return nil, nil
	}

	if _, err := thunk.New[searchState, string, []string]("", payload); err != thunk.ErrEmptyTypePrefix {
		t.Errorf("empty prefix: error = %v, want ErrEmptyTypePrefix", err)
	}
	if _, err := thunk.New[searchState, string, []string]("search/find", nil); err != thunk.ErrNilPayload {
		t.Errorf("nil payload: error = %v, want ErrNilPayload", err)
	}
}

func TestLifecycle_PendingThenFulfilled(t *testing.T) {
	find, _ := thunk.New("search/find", func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
		return []string{arg + "-1", arg + "-2"}, nil
	})

	rec := &recorder{}
	s := newSearchStore(t, find, rec)

	req := find.Start(s, "go")
	waitDone(t, req.Done())

	actions := rec.recorded()
	if len(actions) != 2 {
		t.Fatalf("recorded %d actions, want 2 (pending, fulfilled): %v", len(actions), actions)
	}

	pending, ok := find.MatchPending(actions[0])
	if !ok {
		t.Fatalf("first action %T, want Pending", actions[0])
	}
	fulfilled, ok := find.MatchFulfilled(actions[1])
	if !ok {
		t.Fatalf("second action %T, want Fulfilled", actions[1])
	}

	if pending.RequestID != req.RequestID() || fulfilled.RequestID != req.RequestID() {
		t.Errorf("request ids differ: pending=%q fulfilled=%q handle=%q",
			pending.RequestID, fulfilled.RequestID, req.RequestID())
	}
	if len(fulfilled.Result) != 2 || fulfilled.Result[0] != "go-1" {
		t.Errorf("Result = %v", fulfilled.Result)
	}
	if got := s.State(); len(got.Results) != 2 {
		t.Errorf("state = %+v, want results applied", got)
	}
}

func TestLifecycle_ErrorRejects(t *testing.T) {
	find, _ := thunk.New("search/find", func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
		return nil, errors.New("boom")
	})

	rec := &recorder{}
	s := newSearchStore(t, find, rec)

	req := find.Start(s, "go")
	waitDone(t, req.Done())

	actions := rec.recorded()
	if len(actions) != 2 {
		t.Fatalf("recorded %d actions, want 2 (pending, rejected): %v", len(actions), actions)
	}
	if _, ok := find.MatchPending(actions[0]); !ok {
		t.Fatalf("first action %T, want Pending", actions[0])
	}
	rejected, ok := find.MatchRejected(actions[1])
	if !ok {
		t.Fatalf("second action %T, want Rejected", actions[1])
	}
	if rejected.Err == nil || rejected.Err.Error() != "boom" {
		t.Errorf("Err = %v, want boom", rejected.Err)
	}
	if rejected.Canceled {
		t.Error("ordinary failure marked as canceled")
	}
	if got := s.State().Err; got != "boom" {
		t.Errorf("state error = %q, want boom", got)
	}
}

func TestLifecycle_PanicRejects(t *testing.T) {
	find, _ := thunk.New("search/find", func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
		panic("kaboom")
	})

	rec := &recorder{}
	s := newSearchStore(t, find, rec)

	req := find.Start(s, "go")
	waitDone(t, req.Done())

	rejected, ok := find.MatchRejected(rec.recorded()[1])
	if !ok {
		t.Fatal("expected a rejected action after payload panic")
	}
	if rejected.Err == nil {
		t.Error("rejected action carries no error")
	}
}

func TestCondition_SkipsEntirely(t *testing.T) {
	find, _ := thunk.New("search/find",
		func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
			t.Error("payload must not run when the condition fails")
			return nil, nil
		},
		thunk.WithCondition[searchState, string, []string](func(arg string, state searchState) bool {
			return !state.Busy
		}),
	)

	rec := &recorder{}
	s, err := store.New(searchState{Busy: true}, searchReducer(find),
		store.WithMiddleware(thunk.Middleware[searchState](), rec.middleware()),
	)
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}

	req := find.Start(s, "go")
	waitDone(t, req.Done())

	if actions := rec.recorded(); len(actions) != 0 {
		t.Errorf("skipped invocation dispatched %d actions, want 0: %v", len(actions), actions)
	}
}

func TestRejectWith_CarriesValue(t *testing.T) {
	find, _ := thunk.New("search/find", func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
		return nil, thunk.RejectWith(map[string]int{"code": 404})
	})

	rec := &recorder{}
	s := newSearchStore(t, find, rec)

	req := find.Start(s, "go")
	waitDone(t, req.Done())

	rejected, ok := find.MatchRejected(rec.recorded()[1])
	if !ok {
		t.Fatal("expected rejected action")
	}
	var rejection *thunk.Rejection
	if !errors.As(rejected.Err, &rejection) {
		t.Fatalf("Err = %T, want *thunk.Rejection", rejected.Err)
	}
	value, ok := rejection.Value.(map[string]int)
	if !ok || value["code"] != 404 {
		t.Errorf("rejection value = %v", rejection.Value)
	}
}

func TestFulfillWith_ReplacesReturnValue(t *testing.T) {
	find, _ := thunk.New("search/find", func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
		return []string{"never seen"}, thunk.FulfillWith([]string{"cached"})
	})

	rec := &recorder{}
	s := newSearchStore(t, find, rec)

	req := find.Start(s, "go")
	waitDone(t, req.Done())

	fulfilled, ok := find.MatchFulfilled(rec.recorded()[1])
	if !ok {
		t.Fatal("expected fulfilled action")
	}
	if len(fulfilled.Result) != 1 || fulfilled.Result[0] != "cached" {
		t.Errorf("Result = %v, want [cached]", fulfilled.Result)
	}
}

func TestAbort_RejectsCanceled(t *testing.T) {
	started := make(chan struct{})
	find, _ := thunk.New("search/find", func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
		close(started)
		<-ctx.Done()
		return nil, context.Cause(ctx)
	})

	rec := &recorder{}
	s := newSearchStore(t, find, rec)

	req := find.Start(s, "go")
	<-started
	req.Abort(nil)
	waitDone(t, req.Done())

	rejected, ok := find.MatchRejected(rec.recorded()[1])
	if !ok {
		t.Fatal("expected rejected action after abort")
	}
	if !rejected.Canceled {
		t.Error("abort not marked as canceled")
	}
	if !errors.Is(rejected.Err, thunk.ErrAborted) {
		t.Errorf("Err = %v, want ErrAborted", rejected.Err)
	}
}

func TestLifecycle_ExactlyOneTerminalAction(t *testing.T) {
	find, _ := thunk.New("search/find", func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
		return []string{"r"}, nil
	})

	rec := &recorder{}
	s := newSearchStore(t, find, rec)

	req := find.With("go")
	s.Dispatch(req)
	s.Dispatch(req) // re-dispatching the same request is a no-op
	waitDone(t, req.Done())
	time.Sleep(20 * time.Millisecond)

	var pendings, terminals int
	for _, a := range rec.recorded() {
		if _, ok := find.MatchPending(a); ok {
			pendings++
		}
		if _, ok := find.MatchFulfilled(a); ok {
			terminals++
		}
		if _, ok := find.MatchRejected(a); ok {
			terminals++
		}
	}
	if pendings != 1 {
		t.Errorf("pending actions = %d, want 1", pendings)
	}
	if terminals != 1 {
		t.Errorf("terminal actions = %d, want exactly 1", terminals)
	}
}

func TestRequestIDs_UniquePerInvocation(t *testing.T) {
	find, _ := thunk.New("search/find", func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
		return nil, nil
	})

	seen := make(map[string]bool)
	for range 50 {
		req := find.With("go")
		if seen[req.RequestID()] {
			t.Fatalf("duplicate request id %q", req.RequestID())
		}
		seen[req.RequestID()] = true
	}
}

func TestRequestIDs_UseInjectedClock(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	find, _ := thunk.New("search/find",
		func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
			return nil, nil
		},
		thunk.WithClock[searchState, string, []string](func() time.Time { return fixed }),
	)

	req := find.With("go")
	want := fmt.Sprintf("search/find-1-%d", fixed.UnixMilli())
	if req.RequestID() != want {
		t.Errorf("RequestID = %q, want %q", req.RequestID(), want)
	}
}

func TestPayload_APIExposesDispatchAndState(t *testing.T) {
	type progress struct{ Pct int }

	find, _ := thunk.New("search/find",
		func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
			if api.Extra != "service" {
				t.Errorf("Extra = %v, want service", api.Extra)
			}
			if !api.GetState().Busy {
				t.Error("GetState did not observe the pending state")
			}
			api.Dispatch(progress{Pct: 50})
			return []string{"done"}, nil
		},
		thunk.WithExtra[searchState, string, []string]("service"),
	)

	rec := &recorder{}
	s := newSearchStore(t, find, rec)

	req := find.Start(s, "go")
	waitDone(t, req.Done())

	var sawProgress bool
	for _, a := range rec.recorded() {
		if p, ok := a.(progress); ok && p.Pct == 50 {
			sawProgress = true
		}
	}
	if !sawProgress {
		t.Error("payload dispatch did not flow through the chain")
	}
}

func TestMiddleware_PassesOrdinaryActionsThrough(t *testing.T) {
	find, _ := thunk.New("search/find", func(ctx context.Context, arg string, api thunk.API[searchState]) ([]string, error) {
		return nil, nil
	})

	rec := &recorder{}
	s := newSearchStore(t, find, rec)

	type plain struct{}
	s.Dispatch(plain{})

	actions := rec.recorded()
	if len(actions) != 1 {
		t.Fatalf("recorded %d actions, want 1", len(actions))
	}
	if _, ok := actions[0].(plain); !ok {
		t.Errorf("action = %T, want plain", actions[0])
	}
}
