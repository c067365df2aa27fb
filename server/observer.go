package server

import "github.com/tailored-agentic-units/callcenter/observability"

// Server event types.
const (
	EventStart      observability.EventType = "server.start"
	EventStop       observability.EventType = "server.stop"
	EventAccept     observability.EventType = "server.ws.accept"
	EventModelError observability.EventType = "server.model.error"
	EventRelayError observability.EventType = "server.relay.error"
)
