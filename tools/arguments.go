package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CallRequest is a model-initiated request to invoke a tool.
type CallRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
	ID        string         `json:"id,omitempty"`
}

// ParseCallRequest decodes the {"tool_name", "arguments"} wire shape.
func ParseCallRequest(data []byte) (CallRequest, error) {
	var req CallRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return CallRequest{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return req, nil
}

// Arguments holds the validated arguments passed to a Handler. Only declared
// parameters are present.
type Arguments map[string]any

// Has reports whether the argument was supplied with a non-null value.
func (a Arguments) Has(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

// String returns the argument as a trimmed string, or "" when absent.
func (a Arguments) String(name string) string {
	v, ok := a[name].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// Bool returns the argument as a bool. The second result is false when
// the argument is absent or not a boolean.
func (a Arguments) Bool(name string) (bool, bool) {
	v, ok := a[name].(bool)
	return v, ok
}

// Float returns a numeric argument as float64.
func (a Arguments) Float(name string) (float64, bool) {
	switch v := a[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// Int returns a numeric argument as int. Non-integral values are rejected.
func (a Arguments) Int(name string) (int, bool) {
	f, ok := a.Float(name)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// prepare keeps only declared parameters, coerces numbers supplied for
// string parameters, and reports missing required arguments.
func prepare(def Definition, raw map[string]any) (Arguments, error) {
	args := make(Arguments, len(def.Parameters))

	var missing []string
	for _, p := range def.Parameters {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			if p.Required {
				missing = append(missing, p.Name)
			}
			continue
		}
		args[p.Name] = coerce(p.Type, v)
	}

	switch len(missing) {
	case 0:
		return args, nil
	case 1:
		return nil, fmt.Errorf("missing required argument: %s", missing[0])
	default:
		return nil, fmt.Errorf("missing required arguments: %s", strings.Join(missing, ", "))
	}
}

func coerce(t ParamType, v any) any {
	if t != TypeString {
		return v
	}
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case json.Number:
		return n.String()
	}
	return v
}
