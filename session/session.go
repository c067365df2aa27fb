// Package session tracks the state of one client connection: its identifier,
// the active prompt name, and the tool calls dispatched on its behalf.
package session

import "time"

// State is the lifecycle state of a session.
type State string

const (
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// ToolCall records one dispatched tool call.
type ToolCall struct {
	ToolUseID string
	ToolName  string
	Status    string
	Duration  time.Duration
	At        time.Time
}

// Session holds per-connection state. Implementations must be safe for
// concurrent use; the client and model pumps both touch it.
type Session interface {
	// ID returns the unique session identifier.
	ID() string
	// State returns the current lifecycle state.
	State() State
	// Disconnect moves the session to StateDisconnected. Idempotent.
	Disconnect()
	// PromptName returns the most recent prompt name seen on the session.
	PromptName() string
	// SetPromptName records the prompt name from a promptStart event.
	SetPromptName(name string)
	// RecordToolCall appends to the tool call log, evicting the oldest
	// entry when the log is full.
	RecordToolCall(call ToolCall)
	// ToolCalls returns a copy of the tool call log.
	ToolCalls() []ToolCall
}
