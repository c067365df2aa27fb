package tools

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome of a tool call as reported to the model.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ToolResult is the uniform, JSON-serializable outcome of a dispatched call.
// Success results carry Data; error results carry Error.
type ToolResult struct {
	Status Status
	Data   any
	Error  string
}

// Success wraps data in a success-status result.
func Success(data any) ToolResult {
	return ToolResult{Status: StatusSuccess, Data: data}
}

// Failure builds an error-status result with the given message.
func Failure(message string) ToolResult {
	return ToolResult{Status: StatusError, Error: message}
}

// OK reports whether the result has success status.
func (r ToolResult) OK() bool {
	return r.Status == StatusSuccess
}

// MarshalJSON emits {"status":"success","data":...} or
// {"status":"error","error":"..."}.
func (r ToolResult) MarshalJSON() ([]byte, error) {
	if r.Status == StatusSuccess {
		return json.Marshal(struct {
			Status Status `json:"status"`
			Data   any    `json:"data"`
		}{r.Status, r.Data})
	}
	return json.Marshal(struct {
		Status Status `json:"status"`
		Error  string `json:"error"`
	}{StatusError, r.Error})
}

func (r *ToolResult) UnmarshalJSON(data []byte) error {
	var wire struct {
		Status Status `json:"status"`
		Data   any    `json:"data"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Status {
	case StatusSuccess, StatusError:
	default:
		return fmt.Errorf("unknown tool result status %q", wire.Status)
	}
	r.Status = wire.Status
	r.Data = wire.Data
	r.Error = wire.Error
	return nil
}

// String returns the JSON encoding used as tool result content. Data has
// already been checked for serializability by the registry; a failure here
// degrades to an error result rather than an empty payload.
func (r ToolResult) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(Failure(fmt.Sprintf("result is not serializable: %v", err)))
	}
	return string(b)
}

// Result is what a Handler returns: either data or an error, never both.
type Result struct {
	data any
	err  error
}

// OK returns a successful handler result.
func OK(data any) Result {
	return Result{data: data}
}

// Fail returns a failed handler result. A nil err is treated as a generic
// handler failure.
func Fail(err error) Result {
	if err == nil {
		err = ErrHandler
	}
	return Result{err: err}
}

// Failf is Fail with a formatted message.
func Failf(format string, args ...any) Result {
	return Result{err: fmt.Errorf(format, args...)}
}

func (r Result) Data() any  { return r.data }
func (r Result) Err() error { return r.err }
