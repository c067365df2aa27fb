package tools

import (
	"errors"
	"fmt"
)

// Sentinel errors for the tools registry.
var (
	ErrEmptyName         = errors.New("tool name is empty")
	ErrDuplicateTool     = errors.New("tool already registered")
	ErrInvalidDefinition = errors.New("invalid tool definition")
	ErrUnknownTool       = errors.New("unknown tool")
	ErrValidation        = errors.New("invalid arguments")
	ErrHandler           = errors.New("tool handler failed")
)

// Error classifies a failed tool call. Kind is one of ErrUnknownTool,
// ErrValidation, or ErrHandler and is matched by errors.Is.
type Error struct {
	Kind error
	Tool string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Tool, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Tool, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message is the text reported to the model in an error-status ToolResult.
// Handler failures pass the handler's own message through unchanged.
func (e *Error) Message() string {
	switch {
	case errors.Is(e.Kind, ErrUnknownTool):
		return fmt.Sprintf("%v: %s", ErrUnknownTool, e.Tool)
	case errors.Is(e.Kind, ErrValidation):
		if e.Err == nil {
			return ErrValidation.Error()
		}
		return fmt.Sprintf("%v: %v", ErrValidation, e.Err)
	default:
		if e.Err == nil {
			return e.Kind.Error()
		}
		return e.Err.Error()
	}
}

func resultMessage(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Message()
	}
	return err.Error()
}
