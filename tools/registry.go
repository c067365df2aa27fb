// Package tools holds the registry of model-callable tools and the dispatcher
// that turns every tool call into a uniform ToolResult.
//
// A Registry is constructed explicitly at startup, populated with Register,
// and then shared read-only by every connection:
//
//	reg := tools.NewRegistry()
//	err := reg.Register(def, handler)
//	result := reg.Dispatch(ctx, tools.CallRequest{ToolName: "customerLookup", Arguments: args})
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/tailored-agentic-units/callcenter/observability"
)

// Handler is the function signature for tool implementations. Handlers
// receive only declared, validated arguments and report failure through
// the returned Result rather than panicking.
type Handler func(ctx context.Context, args Arguments) Result

type entry struct {
	def     Definition
	schema  *jsonschema.Resolved
	handler Handler
}

// Registry maps tool names to handlers. Safe for concurrent use; in
// practice it is written during startup and only read afterwards.
type Registry struct {
	entries  map[string]*entry
	order    []string
	observer observability.Observer
	mu       sync.RWMutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver sets the observer that receives dispatch events.
func WithObserver(o observability.Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[string]*entry),
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. The definition is validated and its schema resolved
// here so that malformed definitions fail at startup, not mid-call.
// Returns ErrDuplicateTool if the name is taken; the existing registration
// is left untouched.
func (r *Registry) Register(def Definition, handler Handler) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: %s: nil handler", ErrInvalidDefinition, def.Name)
	}

	resolved, err := def.Schema().Resolve(nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}

	r.entries[def.Name] = &entry{def: def.clone(), schema: resolved, handler: handler}
	r.order = append(r.order, def.Name)

	r.observer.OnEvent(context.Background(), observability.NewEvent(
		EventRegister, observability.LevelVerbose, "tools.Register",
		map[string]any{"tool": def.Name, "parameters": len(def.Parameters)},
	))
	return nil
}

// List returns all definitions in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].def.clone())
	}
	return defs
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return Definition{}, false
	}
	return e.def.clone(), true
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Call runs a tool and returns its data or a classified *Error
// (ErrUnknownTool, ErrValidation, ErrHandler). Handler panics are
// recovered and reported as ErrHandler.
func (r *Registry) Call(ctx context.Context, req CallRequest) (any, error) {
	r.mu.RLock()
	e, exists := r.entries[req.ToolName]
	r.mu.RUnlock()

	if !exists {
		return nil, &Error{Kind: ErrUnknownTool, Tool: req.ToolName}
	}

	args, err := prepare(e.def, req.Arguments)
	if err != nil {
		return nil, &Error{Kind: ErrValidation, Tool: req.ToolName, Err: err}
	}
	if err := e.schema.Validate(map[string]any(args)); err != nil {
		return nil, &Error{Kind: ErrValidation, Tool: req.ToolName, Err: err}
	}

	res := invoke(ctx, e.handler, args)
	if res.err != nil {
		return nil, &Error{Kind: ErrHandler, Tool: req.ToolName, Err: res.err}
	}

	if _, err := json.Marshal(res.data); err != nil {
		return nil, &Error{
			Kind: ErrHandler,
			Tool: req.ToolName,
			Err:  fmt.Errorf("result is not serializable: %v", err),
		}
	}
	return res.data, nil
}

// Dispatch is the fault boundary: whatever happens inside Call, the caller
// receives a well-formed ToolResult.
func (r *Registry) Dispatch(ctx context.Context, req CallRequest) ToolResult {
	start := time.Now()

	r.observer.OnEvent(ctx, observability.NewEvent(
		EventDispatchStart, observability.LevelVerbose, "tools.Dispatch",
		map[string]any{"tool": req.ToolName, "id": req.ID},
	))

	data, err := r.Call(ctx, req)
	if err != nil {
		r.observer.OnEvent(ctx, observability.NewEvent(
			EventDispatchError, observability.LevelWarning, "tools.Dispatch",
			map[string]any{
				"tool":     req.ToolName,
				"id":       req.ID,
				"error":    err.Error(),
				"duration": time.Since(start),
			},
		))
		return Failure(resultMessage(err))
	}

	r.observer.OnEvent(ctx, observability.NewEvent(
		EventDispatchComplete, observability.LevelInfo, "tools.Dispatch",
		map[string]any{
			"tool":     req.ToolName,
			"id":       req.ID,
			"duration": time.Since(start),
		},
	))
	return Success(data)
}

func invoke(ctx context.Context, h Handler, args Arguments) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Fail(fmt.Errorf("panic: %v", p))
		}
	}()
	return h(ctx, args)
}
