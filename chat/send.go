package chat

import (
	"context"
	"strings"
	"time"

	"github.com/statekit/statekit/thunk"
)

// SendArg is the input to the send thunk: the message body and the
// wall-clock moment the user hit enter.
type SendArg struct {
	Body string
	At   time.Time
}

// SendDefinition is the send thunk. The pending action inserts the
// user's message in the sending state; fulfillment marks it delivered;
// rejection marks it failed.
type SendDefinition = thunk.Definition[State, SendArg, Message]

// NewSendThunk builds the send definition. Delivery is simulated with a
// configurable latency; cancellation during the wait rejects the send.
func NewSendThunk(cfg Config) (*SendDefinition, error) {
	delay := cfg.SendDelay()

	payload := func(ctx context.Context, arg SendArg, api thunk.API[State]) (Message, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Message{}, context.Cause(ctx)
		}

		return Message{
			ID:       api.RequestID,
			Author:   AuthorUser,
			Body:     arg.Body,
			SentAt:   arg.At,
			Delivery: DeliveryDelivered,
		}, nil
	}

	// Empty drafts and overlapping sends are skipped outright: no
	// lifecycle actions are dispatched for them.
	condition := func(arg SendArg, s State) bool {
		return strings.TrimSpace(arg.Body) != "" && s.Status != StatusSending
	}

	return thunk.New("chat/send", payload,
		thunk.WithCondition[State, SendArg, Message](condition),
	)
}
