package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tailored-agentic-units/callcenter/observability"
	"github.com/tailored-agentic-units/callcenter/tools"
)

func lookupDef(name string) tools.Definition {
	return tools.Definition{
		Name:        name,
		Description: "test tool: " + name,
		Parameters: []tools.Parameter{
			{Name: "phone_number", Type: tools.TypeString, Description: "caller phone", Required: true},
			{Name: "verbose", Type: tools.TypeBoolean, Description: "include detail"},
		},
	}
}

func echoHandler(_ context.Context, args tools.Arguments) tools.Result {
	return tools.OK(map[string]any(args))
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		def     tools.Definition
		handler tools.Handler
		wantErr error
	}{
		{
			name:    "valid tool",
			def:     lookupDef("register_valid"),
			handler: echoHandler,
		},
		{
			name:    "empty name",
			def:     tools.Definition{},
			handler: echoHandler,
			wantErr: tools.ErrEmptyName,
		},
		{
			name:    "nil handler",
			def:     lookupDef("register_nil"),
			wantErr: tools.ErrInvalidDefinition,
		},
		{
			name: "unsupported parameter type",
			def: tools.Definition{
				Name:       "register_badtype",
				Parameters: []tools.Parameter{{Name: "x", Type: "date"}},
			},
			handler: echoHandler,
			wantErr: tools.ErrInvalidDefinition,
		},
		{
			name: "duplicate parameter",
			def: tools.Definition{
				Name: "register_dupparam",
				Parameters: []tools.Parameter{
					{Name: "x", Type: tools.TypeString},
					{Name: "x", Type: tools.TypeNumber},
				},
			},
			handler: echoHandler,
			wantErr: tools.ErrInvalidDefinition,
		},
		{
			name: "enum on number",
			def: tools.Definition{
				Name:       "register_enum",
				Parameters: []tools.Parameter{{Name: "x", Type: tools.TypeNumber, Enum: []string{"1"}}},
			},
			handler: echoHandler,
			wantErr: tools.ErrInvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := tools.NewRegistry()
			err := reg.Register(tt.def, tt.handler)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
				}
				if reg.Len() != 0 {
					t.Errorf("Len() = %d after failed Register, want 0", reg.Len())
				}
				return
			}
			if err != nil {
				t.Errorf("Register() unexpected error: %v", err)
			}
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	reg := tools.NewRegistry()
	if err := reg.Register(lookupDef("dup"), echoHandler); err != nil {
		t.Fatalf("first Register() failed: %v", err)
	}

	replacement := func(_ context.Context, _ tools.Arguments) tools.Result {
		return tools.OK("replaced")
	}
	err := reg.Register(tools.Definition{Name: "dup", Description: "other"}, replacement)
	if !errors.Is(err, tools.ErrDuplicateTool) {
		t.Fatalf("second Register() error = %v, want %v", err, tools.ErrDuplicateTool)
	}

	def, _ := reg.Get("dup")
	if def.Description != "test tool: dup" {
		t.Errorf("definition overwritten: %q", def.Description)
	}

	result := reg.Dispatch(context.Background(), tools.CallRequest{
		ToolName:  "dup",
		Arguments: map[string]any{"phone_number": "1"},
	})
	if !result.OK() {
		t.Fatalf("Dispatch() after duplicate = %+v", result)
	}
	if _, isString := result.Data.(string); isString {
		t.Error("duplicate registration replaced the original handler")
	}
}

func TestList_InsertionOrder(t *testing.T) {
	reg := tools.NewRegistry()
	names := []string{"zeta", "alpha", "mike"}
	for _, n := range names {
		if err := reg.Register(lookupDef(n), echoHandler); err != nil {
			t.Fatalf("Register(%s) failed: %v", n, err)
		}
	}

	list := reg.List()
	if len(list) != len(names) {
		t.Fatalf("List() returned %d tools, want %d", len(list), len(names))
	}
	for i, def := range list {
		if def.Name != names[i] {
			t.Errorf("List()[%d] = %q, want %q", i, def.Name, names[i])
		}
	}

	list[0].Parameters[0].Name = "mutated"
	if def, _ := reg.Get("zeta"); def.Parameters[0].Name != "phone_number" {
		t.Error("List() exposed internal parameter slice")
	}
}

func TestGet_NotFound(t *testing.T) {
	reg := tools.NewRegistry()
	if _, exists := reg.Get("missing"); exists {
		t.Error("Get() returned exists=true for unregistered tool")
	}
}

func TestDispatch(t *testing.T) {
	reg := tools.NewRegistry()
	if err := reg.Register(lookupDef("customerLookup"), echoHandler); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	failing := tools.Definition{Name: "failing"}
	if err := reg.Register(failing, func(context.Context, tools.Arguments) tools.Result {
		return tools.Fail(errors.New("not found"))
	}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	panicking := tools.Definition{Name: "panicking"}
	if err := reg.Register(panicking, func(context.Context, tools.Arguments) tools.Result {
		panic("boom")
	}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	unserializable := tools.Definition{Name: "unserializable"}
	if err := reg.Register(unserializable, func(context.Context, tools.Arguments) tools.Result {
		return tools.OK(map[string]any{"ch": make(chan int)})
	}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	tests := []struct {
		name      string
		req       tools.CallRequest
		wantOK    bool
		wantError string
	}{
		{
			name:   "valid call",
			req:    tools.CallRequest{ToolName: "customerLookup", Arguments: map[string]any{"phone_number": "+15551234567"}},
			wantOK: true,
		},
		{
			name:      "unknown tool",
			req:       tools.CallRequest{ToolName: "nope"},
			wantError: "unknown tool: nope",
		},
		{
			name:      "missing required",
			req:       tools.CallRequest{ToolName: "customerLookup", Arguments: map[string]any{"verbose": true}},
			wantError: "missing required argument: phone_number",
		},
		{
			name:      "null required",
			req:       tools.CallRequest{ToolName: "customerLookup", Arguments: map[string]any{"phone_number": nil}},
			wantError: "missing required argument: phone_number",
		},
		{
			name:      "wrong type",
			req:       tools.CallRequest{ToolName: "customerLookup", Arguments: map[string]any{"phone_number": "1", "verbose": "yes"}},
			wantError: "invalid arguments",
		},
		{
			name:      "handler error",
			req:       tools.CallRequest{ToolName: "failing"},
			wantError: "not found",
		},
		{
			name:      "handler panic",
			req:       tools.CallRequest{ToolName: "panicking"},
			wantError: "panic: boom",
		},
		{
			name:      "unserializable data",
			req:       tools.CallRequest{ToolName: "unserializable"},
			wantError: "result is not serializable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := reg.Dispatch(context.Background(), tt.req)
			if result.OK() != tt.wantOK {
				t.Fatalf("Dispatch() status = %q, want ok=%v (error %q)", result.Status, tt.wantOK, result.Error)
			}
			if !tt.wantOK && !strings.Contains(result.Error, tt.wantError) {
				t.Errorf("Dispatch() error = %q, want containing %q", result.Error, tt.wantError)
			}
			if _, err := json.Marshal(result); err != nil {
				t.Errorf("result not serializable: %v", err)
			}
		})
	}
}

func TestDispatch_HandlerErrorVerbatim(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(tools.Definition{Name: "lookup"}, func(context.Context, tools.Arguments) tools.Result {
		return tools.Fail(errors.New("not found"))
	})

	result := reg.Dispatch(context.Background(), tools.CallRequest{ToolName: "lookup"})
	if result.Error != "not found" {
		t.Errorf("Error = %q, want %q", result.Error, "not found")
	}
}

func TestCall_ClassifiesErrors(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(lookupDef("lookup"), func(context.Context, tools.Arguments) tools.Result {
		return tools.Failf("record %s missing", "x")
	})

	tests := []struct {
		name string
		req  tools.CallRequest
		want error
	}{
		{"unknown", tools.CallRequest{ToolName: "other"}, tools.ErrUnknownTool},
		{"validation", tools.CallRequest{ToolName: "lookup"}, tools.ErrValidation},
		{"handler", tools.CallRequest{ToolName: "lookup", Arguments: map[string]any{"phone_number": "1"}}, tools.ErrHandler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Call(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Call() error = %v, want %v", err, tt.want)
			}
			var te *tools.Error
			if !errors.As(err, &te) {
				t.Fatalf("Call() error %T is not *tools.Error", err)
			}
			if te.Tool != tt.req.ToolName {
				t.Errorf("Error.Tool = %q, want %q", te.Tool, tt.req.ToolName)
			}
		})
	}
}

func TestCall_ArgumentPreparation(t *testing.T) {
	reg := tools.NewRegistry()

	var got tools.Arguments
	reg.Register(tools.Definition{
		Name: "prep",
		Parameters: []tools.Parameter{
			{Name: "phone_number", Type: tools.TypeString, Required: true},
			{Name: "max_distance", Type: tools.TypeNumber},
			{Name: "guests", Type: tools.TypeInteger},
		},
	}, func(_ context.Context, args tools.Arguments) tools.Result {
		got = args
		return tools.OK(nil)
	})

	_, err := reg.Call(context.Background(), tools.CallRequest{
		ToolName: "prep",
		Arguments: map[string]any{
			"phone_number": float64(15551234567),
			"max_distance": 12.5,
			"guests":       float64(3),
			"undeclared":   "dropped",
		},
	})
	if err != nil {
		t.Fatalf("Call() failed: %v", err)
	}

	if got.String("phone_number") != "15551234567" {
		t.Errorf("phone_number = %q, want coerced %q", got.String("phone_number"), "15551234567")
	}
	if got.Has("undeclared") {
		t.Error("undeclared argument reached handler")
	}
	if d, ok := got.Float("max_distance"); !ok || d != 12.5 {
		t.Errorf("max_distance = %v, %v", d, ok)
	}
	if n, ok := got.Int("guests"); !ok || n != 3 {
		t.Errorf("guests = %v, %v", n, ok)
	}
}

func TestCall_EnumValidation(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(tools.Definition{
		Name: "booking",
		Parameters: []tools.Parameter{
			{Name: "action", Type: tools.TypeString, Required: true, Enum: []string{"create", "cancel"}},
		},
	}, echoHandler)

	if _, err := reg.Call(context.Background(), tools.CallRequest{
		ToolName: "booking", Arguments: map[string]any{"action": "delete"},
	}); !errors.Is(err, tools.ErrValidation) {
		t.Errorf("Call() with bad enum error = %v, want %v", err, tools.ErrValidation)
	}
	if _, err := reg.Call(context.Background(), tools.CallRequest{
		ToolName: "booking", Arguments: map[string]any{"action": "create"},
	}); err != nil {
		t.Errorf("Call() with valid enum failed: %v", err)
	}
}

func TestCall_RespectsContext(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(tools.Definition{Name: "ctx"}, func(ctx context.Context, _ tools.Arguments) tools.Result {
		if err := ctx.Err(); err != nil {
			return tools.Fail(err)
		}
		return tools.OK("ok")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.Call(ctx, tools.CallRequest{ToolName: "ctx"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Call() error = %v, want context.Canceled", err)
	}
}

func TestDispatch_EmitsEvents(t *testing.T) {
	obs := &recordingObserver{}
	reg := tools.NewRegistry(tools.WithObserver(obs))
	reg.Register(lookupDef("observed"), echoHandler)

	reg.Dispatch(context.Background(), tools.CallRequest{ToolName: "observed", Arguments: map[string]any{"phone_number": "1"}})
	reg.Dispatch(context.Background(), tools.CallRequest{ToolName: "missing"})

	want := []observability.EventType{
		tools.EventRegister,
		tools.EventDispatchStart,
		tools.EventDispatchComplete,
		tools.EventDispatchStart,
		tools.EventDispatchError,
	}
	got := obs.types()
	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDispatch_Concurrent(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(lookupDef("concurrent"), echoHandler)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := reg.Dispatch(context.Background(), tools.CallRequest{
				ToolName:  "concurrent",
				Arguments: map[string]any{"phone_number": "1"},
			})
			if !result.OK() {
				t.Errorf("Dispatch() = %+v", result)
			}
		}()
	}
	wg.Wait()
}

func TestToolResult_JSON(t *testing.T) {
	tests := []struct {
		name   string
		result tools.ToolResult
		want   string
	}{
		{"success", tools.Success(map[string]any{"name": "John Doe"}), `{"status":"success","data":{"name":"John Doe"}}`},
		{"success nil data", tools.Success(nil), `{"status":"success","data":null}`},
		{"error", tools.Failure("not found"), `{"status":"error","error":"not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestToolResult_UnmarshalRejectsUnknownStatus(t *testing.T) {
	var r tools.ToolResult
	if err := json.Unmarshal([]byte(`{"status":"maybe"}`), &r); err == nil {
		t.Error("expected error for unknown status")
	}
	if err := json.Unmarshal([]byte(`{"status":"error","error":"x"}`), &r); err != nil || r.Error != "x" {
		t.Errorf("Unmarshal error result = %+v, %v", r, err)
	}
}

func TestParseCallRequest(t *testing.T) {
	req, err := tools.ParseCallRequest([]byte(`{"tool_name":"customerLookup","arguments":{"phone_number":"+15551234567"}}`))
	if err != nil {
		t.Fatalf("ParseCallRequest() failed: %v", err)
	}
	if req.ToolName != "customerLookup" || req.Arguments["phone_number"] != "+15551234567" {
		t.Errorf("unexpected request %+v", req)
	}

	if _, err := tools.ParseCallRequest([]byte(`{bad`)); !errors.Is(err, tools.ErrValidation) {
		t.Errorf("ParseCallRequest() malformed error = %v, want %v", err, tools.ErrValidation)
	}
}

func TestDefinition_Schema(t *testing.T) {
	schema := lookupDef("schema").Schema()

	if schema.Type != "object" {
		t.Errorf("Type = %q, want object", schema.Type)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "phone_number" {
		t.Errorf("Required = %v", schema.Required)
	}
	if p := schema.Properties["verbose"]; p == nil || p.Type != "boolean" {
		t.Errorf("verbose property = %+v", p)
	}
}

func TestDefinition_Schema_PropertyOrder(t *testing.T) {
	def := tools.Definition{
		Name: "ordered",
		Parameters: []tools.Parameter{
			{Name: "zeta", Type: tools.TypeString},
			{Name: "alpha", Type: tools.TypeNumber},
			{Name: "mid", Type: tools.TypeBoolean},
		},
	}

	data, err := json.Marshal(def.Schema())
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	out := string(data)
	zeta, alpha, mid := strings.Index(out, `"zeta"`), strings.Index(out, `"alpha"`), strings.Index(out, `"mid"`)
	if zeta < 0 || alpha < 0 || mid < 0 {
		t.Fatalf("properties missing: %s", out)
	}
	if !(zeta < alpha && alpha < mid) {
		t.Errorf("properties not in declaration order: %s", out)
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (o *recordingObserver) OnEvent(_ context.Context, e observability.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) types() []observability.EventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]observability.EventType, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}
