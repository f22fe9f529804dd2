package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/statekit/statekit/listener"
	"github.com/statekit/statekit/logging"
	"github.com/statekit/statekit/observability"
	"github.com/statekit/statekit/store"
	"github.com/statekit/statekit/thunk"
)

const shutdownTimeout = 5 * time.Second

// App wires a chat room: store, send thunk, logging middleware, and the
// auto-reply bot listener.
type App struct {
	Config Config
	Store  *store.Store[State]
	Send   *SendDefinition
	Log    *logging.Middleware[State]

	listeners *listener.Middleware[State]
	clock     func() time.Time
}

// AppOption adjusts app construction.
type AppOption func(*appOptions)

type appOptions struct {
	clock     func() time.Time
	sink      logging.Sink
	storeOpts []store.Option[State]
}

// WithAppClock injects the wall-clock source, for tests.
func WithAppClock(clock func() time.Time) AppOption {
	return func(o *appOptions) {
		o.clock = clock
	}
}

// WithLogSink routes dispatch logs somewhere other than stdout.
func WithLogSink(sink logging.Sink) AppOption {
	return func(o *appOptions) {
		o.sink = sink
	}
}

// WithStoreOptions forwards extra options to the underlying store.
func WithStoreOptions(opts ...store.Option[State]) AppOption {
	return func(o *appOptions) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// NewApp builds a ready chat application from cfg.
func NewApp(cfg Config, opts ...AppOption) (*App, error) {
	options := appOptions{
		clock: time.Now,
		sink:  logging.StdoutSink(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	send, err := NewSendThunk(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build send thunk: %w", err)
	}

	name := cfg.Observer
	if name == "" {
		name = defaultObserver
	}
	observer, err := observability.GetObserver(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	logmw := logging.NewMiddleware[State](
		logging.WithTag("chat"),
		logging.WithSink(options.sink),
		logging.WithHistory(cfg.LogHistory),
	)
	listeners := listener.NewMiddleware[State]()

	storeOpts := append([]store.Option[State]{
		store.WithMiddleware(
			logmw.Handler(),
			thunk.Middleware[State](),
			listeners.Handler(),
		),
		store.WithClock[State](options.clock),
		store.WithObserver[State](observer),
	}, options.storeOpts...)

	s, err := store.New(InitialState(), NewReducer(send), storeOpts...)
	if err != nil {
		listeners.Shutdown(shutdownTimeout)
		return nil, fmt.Errorf("failed to build store: %w", err)
	}

	app := &App{
		Config:    cfg,
		Store:     s,
		Send:      send,
		Log:       logmw,
		listeners: listeners,
		clock:     options.clock,
	}
	app.registerAutoReply()

	return app, nil
}

// SendMessage dispatches the send thunk for body and returns the
// request handle.
func (a *App) SendMessage(body string) *thunk.Request[State, SendArg, Message] {
	return a.Send.Start(a.Store, SendArg{
		Body: strings.TrimSpace(body),
		At:   a.clock(),
	})
}

// ClearTranscript wipes the room.
func (a *App) ClearTranscript() {
	a.Store.Dispatch(transcriptCleared{})
}

// DismissError clears the error banner.
func (a *App) DismissError() {
	a.Store.Dispatch(errDismissed{})
}

// Close tears down the listeners and the store.
func (a *App) Close() error {
	lerr := a.listeners.Shutdown(shutdownTimeout)
	serr := a.Store.Close()
	if lerr != nil {
		return lerr
	}
	return serr
}

// The bot answers every delivered user message after a typing delay.
func (a *App) registerAutoReply() {
	delivered := func(action store.Action) bool {
		_, ok := a.Send.MatchFulfilled(action)
		return ok
	}

	a.listeners.Add(delivered, func(ctx context.Context, action store.Action, api listener.API[State]) {
		fulfilled, _ := a.Send.MatchFulfilled(action)

		api.Dispatch(botTyping{})
		select {
		case <-time.After(a.Config.ReplyDelay()):
		case <-ctx.Done():
			return
		}

		api.Dispatch(botReplied{Message: Message{
			ID:       uuid.NewString(),
			Author:   AuthorBot,
			Body:     replyTo(fulfilled.Result.Body),
			SentAt:   a.clock(),
			Delivery: DeliveryDelivered,
		}})
	})
}

// replyTo produces the bot's canned response for a user message.
func replyTo(body string) string {
	trimmed := strings.TrimSpace(body)
	lower := strings.ToLower(trimmed)

	switch {
	case lower == "":
		return "Say that again?"
	case strings.HasSuffix(trimmed, "?"):
		return "Good question. I only echo, so: " + trimmed
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return "Hello! Everything you see here is one store and a handful of actions."
	case strings.Contains(lower, "bye"):
		return "Bye! Dispatch again anytime."
	default:
		return "You said: " + trimmed
	}
}
