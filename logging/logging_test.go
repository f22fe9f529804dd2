package logging_test

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/statekit/statekit/logging"
	"github.com/statekit/statekit/store"
)

type counterState struct {
	Count int
}

type increment struct{}

func counterReducer(s counterState, action store.Action) counterState {
	if _, ok := action.(increment); ok {
		return counterState{Count: s.Count + 1}
	}
	return s
}

type captureSink struct {
	mu       sync.Mutex
	tags     []string
	messages []string
}

func (c *captureSink) Log(tag, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = append(c.tags, tag)
	c.messages = append(c.messages, message)
}

func TestMiddleware_RecordsBeforeAndAfterState(t *testing.T) {
	mw := logging.NewMiddleware[counterState](logging.WithSink(&captureSink{}))

	s, err := store.New(counterState{}, counterReducer,
		store.WithMiddleware(mw.Handler()),
	)
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}

	s.Dispatch(increment{})
	s.Dispatch(increment{})

	records := mw.Records()
	if len(records) != 2 {
		t.Fatalf("Records() returned %d entries, want 2", len(records))
	}

	first := records[0]
	if first.ActionName != "increment" {
		t.Errorf("ActionName = %q, want increment", first.ActionName)
	}
	if before := first.StateBefore.(counterState); before.Count != 0 {
		t.Errorf("StateBefore.Count = %d, want 0", before.Count)
	}
	if after := first.StateAfter.(counterState); after.Count != 1 {
		t.Errorf("StateAfter.Count = %d, want 1", after.Count)
	}

	second := records[1]
	if before := second.StateBefore.(counterState); before.Count != 1 {
		t.Errorf("second StateBefore.Count = %d, want 1", before.Count)
	}
}

func TestMiddleware_NeverAltersActionOrState(t *testing.T) {
	mw := logging.NewMiddleware[counterState](logging.WithSink(&captureSink{}))

	s, err := store.New(counterState{}, counterReducer,
		store.WithMiddleware(mw.Handler()),
	)
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}

	for range 5 {
		s.Dispatch(increment{})
	}
	if got := s.State().Count; got != 5 {
		t.Errorf("Count = %d, want 5", got)
	}
}

func TestSink_ReceivesTagAndTiming(t *testing.T) {
	sink := &captureSink{}
	mw := logging.NewMiddleware[counterState](
		logging.WithSink(sink),
		logging.WithTag("counter"),
	)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 10 * time.Millisecond)
	}

	s, err := store.New(counterState{}, counterReducer,
		store.WithMiddleware(mw.Handler()),
		store.WithClock[counterState](clock),
	)
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}

	s.Dispatch(increment{})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.tags) != 1 || sink.tags[0] != "counter" {
		t.Fatalf("tags = %v, want [counter]", sink.tags)
	}
	if !strings.Contains(sink.messages[0], "increment") {
		t.Errorf("message %q does not name the action", sink.messages[0])
	}

	records := mw.Records()
	if records[0].Elapsed <= 0 {
		t.Errorf("Elapsed = %v, want positive with a ticking clock", records[0].Elapsed)
	}
}

func TestHistory_BoundedEviction(t *testing.T) {
	mw := logging.NewMiddleware[counterState](
		logging.WithSink(&captureSink{}),
		logging.WithHistory(3),
	)

	s, err := store.New(counterState{}, counterReducer,
		store.WithMiddleware(mw.Handler()),
	)
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}

	for range 10 {
		s.Dispatch(increment{})
	}

	records := mw.Records()
	if len(records) != 3 {
		t.Fatalf("Records() returned %d entries, want 3", len(records))
	}
	// Oldest evicted first: the retained records are dispatches 8..10.
	if before := records[0].StateBefore.(counterState); before.Count != 7 {
		t.Errorf("oldest retained StateBefore.Count = %d, want 7", before.Count)
	}
}

func TestHistory_Disabled(t *testing.T) {
	mw := logging.NewMiddleware[counterState](
		logging.WithSink(&captureSink{}),
		logging.WithHistory(0),
	)

	s, err := store.New(counterState{}, counterReducer,
		store.WithMiddleware(mw.Handler()),
	)
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}

	s.Dispatch(increment{})
	if records := mw.Records(); len(records) != 0 {
		t.Errorf("Records() returned %d entries with history disabled", len(records))
	}
}

func TestReset_DiscardsRecords(t *testing.T) {
	mw := logging.NewMiddleware[counterState](logging.WithSink(&captureSink{}))

	s, err := store.New(counterState{}, counterReducer,
		store.WithMiddleware(mw.Handler()),
	)
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}

	s.Dispatch(increment{})
	mw.Reset()
	if records := mw.Records(); len(records) != 0 {
		t.Errorf("Records() returned %d entries after Reset", len(records))
	}
}

func TestSlogSink_WritesThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sink := logging.SlogSink(logger)
	sink.Log("store", "increment took 1ms")

	out := buf.String()
	if !strings.Contains(out, "increment took 1ms") || !strings.Contains(out, "tag=store") {
		t.Errorf("slog output %q missing message or tag", out)
	}
}
