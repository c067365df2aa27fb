package session

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

type memorySession struct {
	id         string
	state      State
	promptName string
	calls      []ToolCall
	maxCalls   int
	mu         sync.RWMutex
}

// NewMemorySession creates a connected in-memory Session keeping at most
// maxCalls tool call records. The session is assigned a UUIDv7 identifier.
func NewMemorySession(maxCalls int) Session {
	return &memorySession{
		id:       uuid.Must(uuid.NewV7()).String(),
		state:    StateConnected,
		maxCalls: maxCalls,
	}
}

func (s *memorySession) ID() string {
	return s.id
}

func (s *memorySession) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *memorySession) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
}

func (s *memorySession) PromptName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.promptName
}

func (s *memorySession) SetPromptName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptName = name
}

func (s *memorySession) RecordToolCall(call ToolCall) {
	if s.maxCalls <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.calls) >= s.maxCalls {
		s.calls = slices.Delete(s.calls, 0, len(s.calls)-s.maxCalls+1)
	}
	s.calls = append(s.calls, call)
}

func (s *memorySession) ToolCalls() []ToolCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.calls)
}
