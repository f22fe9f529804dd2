// Package chat is a sample application built on the store: a terminal
// chat room whose entire UI state lives in a single store, mutated only
// by dispatched actions. Messages are kept in a normalized entity
// collection, sending runs through the async thunk lifecycle, and an
// auto-reply bot is wired as a listener effect.
package chat

import (
	"time"

	"github.com/statekit/statekit/entity"
	"github.com/statekit/statekit/store"
)

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser Author = "user"
	AuthorBot  Author = "bot"
)

// DeliveryState tracks a message through the send lifecycle.
type DeliveryState string

const (
	DeliverySending   DeliveryState = "sending"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryFailed    DeliveryState = "failed"
)

// Message is one chat entry.
type Message struct {
	ID       string
	Author   Author
	Body     string
	SentAt   time.Time
	Delivery DeliveryState
}

// Status is the room-level activity indicator.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSending Status = "sending"
	StatusTyping  Status = "typing" // bot is composing a reply
)

// State is the full chat application state.
type State struct {
	Messages entity.State[Message]
	Status   Status
	Err      string
}

// Messages are ordered by send time, ties broken by id for a stable
// transcript.
var messages = must(entity.NewAdapter(
	func(m Message) string { return m.ID },
	entity.WithSortComparer(func(a, b Message) int {
		if c := a.SentAt.Compare(b.SentAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	}),
))

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// InitialState returns an empty chat room.
func InitialState() State {
	return State{
		Messages: messages.InitialState(),
		Status:   StatusIdle,
	}
}

// Transcript returns the messages in display order.
func Transcript(s State) []Message {
	return messages.SelectAll(s.Messages)
}

// botTyping marks the bot as composing a reply.
type botTyping struct{}

// botReplied appends the bot's finished reply.
type botReplied struct {
	Message Message
}

// transcriptCleared wipes the room.
type transcriptCleared struct{}

// errDismissed clears the error banner.
type errDismissed struct{}

// NewReducer builds the chat reducer around the send thunk's lifecycle
// actions.
func NewReducer(send *SendDefinition) store.Reducer[State] {
	return func(s State, action store.Action) State {
		if pending, ok := send.MatchPending(action); ok {
			msg := Message{
				ID:       pending.RequestID,
				Author:   AuthorUser,
				Body:     pending.Arg.Body,
				SentAt:   pending.Arg.At,
				Delivery: DeliverySending,
			}
			s.Messages = messages.AddOne(s.Messages, msg)
			s.Status = StatusSending
			s.Err = ""
			return s
		}

		if fulfilled, ok := send.MatchFulfilled(action); ok {
			s.Messages = messages.UpdateOne(s.Messages, fulfilled.RequestID, func(m Message) Message {
				m.Delivery = DeliveryDelivered
				return m
			})
			s.Status = StatusIdle
			return s
		}

		if rejected, ok := send.MatchRejected(action); ok {
			s.Messages = messages.UpdateOne(s.Messages, rejected.RequestID, func(m Message) Message {
				m.Delivery = DeliveryFailed
				return m
			})
			s.Status = StatusIdle
			if rejected.Err != nil {
				s.Err = rejected.Err.Error()
			}
			return s
		}

		switch a := action.(type) {
		case botTyping:
			s.Status = StatusTyping
			return s
		case botReplied:
			s.Messages = messages.AddOne(s.Messages, a.Message)
			s.Status = StatusIdle
			return s
		case transcriptCleared:
			return InitialState()
		case errDismissed:
			s.Err = ""
			return s
		}

		return s
	}
}
