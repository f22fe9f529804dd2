package chat_test

import (
	"errors"
	"testing"
	"time"

	"github.com/statekit/statekit/chat"
	"github.com/statekit/statekit/thunk"
)

var base = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) (*chat.SendDefinition, func(chat.State, any) chat.State) {
	t.Helper()
	send, err := chat.NewSendThunk(chat.DefaultConfig())
	if err != nil {
		t.Fatalf("NewSendThunk failed: %v", err)
	}
	reducer := chat.NewReducer(send)
	return send, func(s chat.State, action any) chat.State {
		return reducer(s, action)
	}
}

func TestReducer_PendingInsertsSendingMessage(t *testing.T) {
	send, reduce := newFixture(t)

	s := reduce(chat.InitialState(), thunk.Pending[chat.SendArg]{
		TypePrefix: send.TypePrefix(),
		RequestID:  "req-1",
		Arg:        chat.SendArg{Body: "hello", At: base},
	})

	transcript := chat.Transcript(s)
	if len(transcript) != 1 {
		t.Fatalf("transcript has %d messages, want 1", len(transcript))
	}
	msg := transcript[0]
	if msg.ID != "req-1" || msg.Author != chat.AuthorUser || msg.Body != "hello" {
		t.Errorf("message = %+v", msg)
	}
	if msg.Delivery != chat.DeliverySending {
		t.Errorf("Delivery = %q, want sending", msg.Delivery)
	}
	if s.Status != chat.StatusSending {
		t.Errorf("Status = %q, want sending", s.Status)
	}
}

func TestReducer_FulfilledMarksDelivered(t *testing.T) {
	send, reduce := newFixture(t)

	s := reduce(chat.InitialState(), thunk.Pending[chat.SendArg]{
		TypePrefix: send.TypePrefix(),
		RequestID:  "req-1",
		Arg:        chat.SendArg{Body: "hello", At: base},
	})
	s = reduce(s, thunk.Fulfilled[chat.SendArg, chat.Message]{
		TypePrefix: send.TypePrefix(),
		RequestID:  "req-1",
		Arg:        chat.SendArg{Body: "hello", At: base},
		Result:     chat.Message{ID: "req-1", Body: "hello"},
	})

	msg := chat.Transcript(s)[0]
	if msg.Delivery != chat.DeliveryDelivered {
		t.Errorf("Delivery = %q, want delivered", msg.Delivery)
	}
	if s.Status != chat.StatusIdle {
		t.Errorf("Status = %q, want idle", s.Status)
	}
}

func TestReducer_RejectedMarksFailedAndSetsError(t *testing.T) {
	send, reduce := newFixture(t)

	s := reduce(chat.InitialState(), thunk.Pending[chat.SendArg]{
		TypePrefix: send.TypePrefix(),
		RequestID:  "req-1",
		Arg:        chat.SendArg{Body: "hello", At: base},
	})
	s = reduce(s, thunk.Rejected[chat.SendArg]{
		TypePrefix: send.TypePrefix(),
		RequestID:  "req-1",
		Arg:        chat.SendArg{Body: "hello", At: base},
		Err:        errors.New("network down"),
	})

	msg := chat.Transcript(s)[0]
	if msg.Delivery != chat.DeliveryFailed {
		t.Errorf("Delivery = %q, want failed", msg.Delivery)
	}
	if s.Err != "network down" {
		t.Errorf("Err = %q, want network down", s.Err)
	}
	if s.Status != chat.StatusIdle {
		t.Errorf("Status = %q, want idle", s.Status)
	}
}

func TestReducer_IgnoresOtherThunks(t *testing.T) {
	_, reduce := newFixture(t)

	initial := chat.InitialState()
	s := reduce(initial, thunk.Pending[chat.SendArg]{
		TypePrefix: "other/thunk",
		RequestID:  "req-9",
		Arg:        chat.SendArg{Body: "stray", At: base},
	})

	if len(chat.Transcript(s)) != 0 {
		t.Error("reducer reacted to a foreign thunk's lifecycle action")
	}
}

func TestTranscript_OrderedBySendTime(t *testing.T) {
	send, reduce := newFixture(t)

	s := chat.InitialState()
	s = reduce(s, thunk.Pending[chat.SendArg]{
		TypePrefix: send.TypePrefix(),
		RequestID:  "req-2",
		Arg:        chat.SendArg{Body: "second", At: base.Add(time.Minute)},
	})
	s = reduce(s, thunk.Pending[chat.SendArg]{
		TypePrefix: send.TypePrefix(),
		RequestID:  "req-1",
		Arg:        chat.SendArg{Body: "first", At: base},
	})

	transcript := chat.Transcript(s)
	if transcript[0].Body != "first" || transcript[1].Body != "second" {
		t.Errorf("transcript order = [%s %s], want [first second]",
			transcript[0].Body, transcript[1].Body)
	}
}
