package tools_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tailored-agentic-units/callcenter/tools"
)

func propertyParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	return parameters
}

// Dispatching a registered tool with valid arguments yields a success result
// carrying exactly what the handler returned.
func TestDispatchProperties_RegisteredToolSucceeds(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("success data matches handler output", prop.ForAll(
		func(name, value string) bool {
			reg := tools.NewRegistry()
			err := reg.Register(tools.Definition{
				Name:       name,
				Parameters: []tools.Parameter{{Name: "value", Type: tools.TypeString, Required: true}},
			}, func(_ context.Context, args tools.Arguments) tools.Result {
				return tools.OK(map[string]any{"echo": args["value"]})
			})
			if err != nil {
				return false
			}

			result := reg.Dispatch(context.Background(), tools.CallRequest{
				ToolName:  name,
				Arguments: map[string]any{"value": value},
			})
			data, ok := result.Data.(map[string]any)
			return result.OK() && ok && data["echo"] == value
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Unregistered names never escape the registry as anything but an
// error-status result.
func TestDispatchProperties_UnknownToolIsErrorResult(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(tools.Definition{Name: "known"}, func(context.Context, tools.Arguments) tools.Result {
		return tools.OK(nil)
	})

	properties := gopter.NewProperties(propertyParameters())

	properties.Property("unknown names produce error results", prop.ForAll(
		func(name string) bool {
			if name == "known" {
				return true
			}
			result := reg.Dispatch(context.Background(), tools.CallRequest{ToolName: name})
			return result.Status == tools.StatusError &&
				strings.HasPrefix(result.Error, "unknown tool")
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// Any call that omits a required argument is rejected with a validation
// message naming that argument.
func TestDispatchProperties_MissingRequiredArgument(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("missing required argument is a validation error", prop.ForAll(
		func(required, optional string) bool {
			if required == optional {
				return true
			}
			reg := tools.NewRegistry()
			reg.Register(tools.Definition{
				Name: "tool",
				Parameters: []tools.Parameter{
					{Name: required, Type: tools.TypeString, Required: true},
					{Name: optional, Type: tools.TypeString},
				},
			}, func(context.Context, tools.Arguments) tools.Result {
				return tools.OK(nil)
			})

			result := reg.Dispatch(context.Background(), tools.CallRequest{
				ToolName:  "tool",
				Arguments: map[string]any{optional: "x"},
			})
			return result.Status == tools.StatusError &&
				strings.Contains(result.Error, "missing required argument: "+required)
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

// A second registration under the same name fails and leaves the first one
// fully functional.
func TestRegisterProperties_DuplicateIsRejected(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("duplicate registration does not corrupt registry", prop.ForAll(
		func(name string) bool {
			reg := tools.NewRegistry()
			first := func(context.Context, tools.Arguments) tools.Result { return tools.OK("first") }
			second := func(context.Context, tools.Arguments) tools.Result { return tools.OK("second") }

			if err := reg.Register(tools.Definition{Name: name}, first); err != nil {
				return false
			}
			err := reg.Register(tools.Definition{Name: name}, second)
			if !errors.Is(err, tools.ErrDuplicateTool) {
				return false
			}

			result := reg.Dispatch(context.Background(), tools.CallRequest{ToolName: name})
			return reg.Len() == 1 && result.OK() && result.Data == "first"
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
