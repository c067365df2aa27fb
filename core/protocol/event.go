// Package protocol encodes and decodes the JSON event envelopes exchanged
// with the speech-to-speech model endpoint:
//
//	{"event": {"<eventType>": {...}}}
//
// The relay forwards most events untouched; this package only looks inside
// the few it needs to act on.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Event types sent by the client toward the model.
const (
	EventSessionStart = "sessionStart"
	EventPromptStart  = "promptStart"
	EventContentStart = "contentStart"
	EventAudioInput   = "audioInput"
	EventTextInput    = "textInput"
	EventToolResult   = "toolResult"
	EventContentEnd   = "contentEnd"
	EventPromptEnd    = "promptEnd"
	EventSessionEnd   = "sessionEnd"
)

// Event types emitted by the model.
const (
	EventCompletionStart = "completionStart"
	EventTextOutput      = "textOutput"
	EventAudioOutput     = "audioOutput"
	EventToolUse         = "toolUse"
	EventCompletionEnd   = "completionEnd"
	EventUsage           = "usageEvent"
)

// EventConnectionStatus is emitted by the relay itself toward the client.
const EventConnectionStatus = "connectionStatus"

// ContentType classifies a content block.
type ContentType string

const (
	ContentAudio ContentType = "AUDIO"
	ContentText  ContentType = "TEXT"
	ContentTool  ContentType = "TOOL"
)

// Role identifies the speaker of a content block.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
	RoleSystem    Role = "SYSTEM"
	RoleTool      Role = "TOOL"
)

// ErrMalformedEvent is returned by Parse for payloads that are not JSON objects.
var ErrMalformedEvent = errors.New("malformed event")

// Event is a parsed envelope. Raw holds the original bytes so the relay can
// forward the event unchanged. Type is empty for JSON objects without an
// "event" key (status or error messages).
type Event struct {
	Type string
	Body json.RawMessage
	Raw  []byte
}

// Parse decodes an envelope. When several event keys are present the
// lexically first wins; the model never sends more than one.
func Parse(data []byte) (Event, error) {
	var env struct {
		Event map[string]json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	ev := Event{Raw: data}
	if len(env.Event) == 0 {
		return ev, nil
	}

	keys := make([]string, 0, len(env.Event))
	for k := range env.Event {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ev.Type = keys[0]
	ev.Body = env.Event[ev.Type]
	return ev, nil
}

// Is reports whether the event has the given type.
func (e Event) Is(eventType string) bool {
	return e.Type == eventType
}

// Decode unmarshals the event body into v.
func (e Event) Decode(v any) error {
	if len(e.Body) == 0 {
		return fmt.Errorf("%w: event %q has no body", ErrMalformedEvent, e.Type)
	}
	return json.Unmarshal(e.Body, v)
}

// New encodes body as an event of the given type.
func New(eventType string, body any) ([]byte, error) {
	return json.Marshal(map[string]any{
		"event": map[string]any{eventType: body},
	})
}

// PromptStart is the subset of the promptStart body the relay reads.
type PromptStart struct {
	PromptName string `json:"promptName"`
}

// ContentStart is the subset of the contentStart body the relay reads.
type ContentStart struct {
	PromptName  string      `json:"promptName,omitempty"`
	ContentName string      `json:"contentName,omitempty"`
	Type        ContentType `json:"type,omitempty"`
	Role        Role        `json:"role,omitempty"`
}

// ConnectionStatus builds the status event sent to a client on connect.
func ConnectionStatus(status, message string) []byte {
	data, _ := New(EventConnectionStatus, map[string]string{
		"status":  status,
		"message": message,
	})
	return data
}

// ErrorMessage builds the bare error object sent to a client before the
// relay closes the connection.
func ErrorMessage(status, message string) []byte {
	data, _ := json.Marshal(map[string]string{
		"error":  message,
		"status": status,
	})
	return data
}

// RawData wraps a payload that is not a JSON object so the client still
// receives it as JSON.
func RawData(data []byte) []byte {
	wrapped, _ := json.Marshal(map[string]string{"raw_data": string(data)})
	return wrapped
}
