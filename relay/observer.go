package relay

import "github.com/tailored-agentic-units/callcenter/observability"

// Relay event types.
const (
	EventConnect    observability.EventType = "relay.connect"
	EventDisconnect observability.EventType = "relay.disconnect"
	EventPrompt     observability.EventType = "relay.prompt"
	EventToolUse    observability.EventType = "relay.tool.use"
	EventToolResult observability.EventType = "relay.tool.result"
	EventDropped    observability.EventType = "relay.dropped"
	EventError      observability.EventType = "relay.error"
)
