package store

import "github.com/statekit/statekit/observability"

// Observability event types emitted by the store.
const (
	EventDispatch       observability.EventType = "store.dispatch"
	EventStateReplace   observability.EventType = "store.state.replace"
	EventSubscribe      observability.EventType = "store.subscribe"
	EventUnsubscribe    observability.EventType = "store.unsubscribe"
	EventReducerReplace observability.EventType = "store.reducer.replace"
)
