package tools

import "github.com/tailored-agentic-units/callcenter/observability"

// Registry event types emitted during dispatch.
const (
	EventRegister         observability.EventType = "tools.register"
	EventDispatchStart    observability.EventType = "tools.dispatch.start"
	EventDispatchComplete observability.EventType = "tools.dispatch.complete"
	EventDispatchError    observability.EventType = "tools.dispatch.error"
)
