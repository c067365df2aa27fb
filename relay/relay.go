// Package relay bridges a client event stream and a model event stream for
// one connection. Client events go to the model unchanged. Model events go
// to the client unchanged, except tool calls, which are dispatched and
// answered on the model stream.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/callcenter/core/protocol"
	"github.com/tailored-agentic-units/callcenter/endpoint"
	"github.com/tailored-agentic-units/callcenter/observability"
	"github.com/tailored-agentic-units/callcenter/session"
	"github.com/tailored-agentic-units/callcenter/tools"
)

// Dispatcher runs tool calls. *tools.Registry satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req tools.CallRequest) tools.ToolResult
}

// Relay serves connections. One Relay is shared by all connections.
type Relay struct {
	cfg        Config
	dispatcher Dispatcher
	observer   observability.Observer
}

// Option configures a Relay.
type Option func(*Relay)

// WithObserver sets the observer that receives relay events.
func WithObserver(o observability.Observer) Option {
	return func(r *Relay) {
		if o != nil {
			r.observer = o
		}
	}
}

// New creates a Relay.
func New(cfg *Config, dispatcher Dispatcher, opts ...Option) *Relay {
	r := &Relay{
		cfg:        *cfg,
		dispatcher: dispatcher,
		observer:   observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Serve pumps events until either stream ends or ctx is canceled, then
// closes both streams and marks the session disconnected. A stream ending
// normally is not an error.
func (r *Relay) Serve(ctx context.Context, sess session.Session, client, model endpoint.Stream) error {
	c := &conn{relay: r, sess: sess, client: client, model: model, observer: r.observer}
	if so, ok := r.observer.(*observability.SlogObserver); ok {
		c.observer = so.With("session", sess.ID())
		c.tagged = true
	}

	c.emit(ctx, EventConnect, observability.LevelInfo, map[string]any{})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := client.Send(ctx, protocol.ConnectionStatus("connected", "Connected to speech service")); err != nil {
		c.close()
		return c.finish(ctx, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return c.clientToModel(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return c.modelToClient(gctx)
	})

	err := g.Wait()
	c.close()
	return c.finish(ctx, err)
}

type conn struct {
	relay  *Relay
	sess   session.Session
	client endpoint.Stream
	model  endpoint.Stream

	// observer already carries the session id when tagged is set.
	observer observability.Observer
	tagged   bool

	// modelMu keeps the three tool result events contiguous on the model
	// stream while the client pump is forwarding.
	modelMu sync.Mutex

	pending *protocol.ToolUse
}

func (c *conn) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	if !c.tagged {
		data["session"] = c.sess.ID()
	}
	c.observer.OnEvent(ctx, observability.NewEvent(t, level, "relay.Serve", data))
}

func (c *conn) close() {
	c.client.Close()
	c.model.Close()
}

func (c *conn) finish(ctx context.Context, err error) error {
	c.sess.Disconnect()

	if normalEnd(err) {
		err = nil
	}

	data := map[string]any{"tool_calls": len(c.sess.ToolCalls())}
	if err != nil {
		data["error"] = err.Error()
	}
	c.emit(context.WithoutCancel(ctx), EventDisconnect, observability.LevelInfo, data)
	return err
}

func normalEnd(err error) bool {
	return err == nil ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, endpoint.ErrClosed)
}

func (c *conn) sendModel(ctx context.Context, events ...[]byte) error {
	c.modelMu.Lock()
	defer c.modelMu.Unlock()

	for _, data := range events {
		if err := c.model.Send(ctx, data); err != nil {
			return err
		}
	}
	return nil
}

func (c *conn) clientToModel(ctx context.Context) error {
	for {
		data, err := c.client.Recv(ctx)
		if err != nil {
			return err
		}

		ev, err := protocol.Parse(data)
		if err != nil {
			c.emit(ctx, EventDropped, observability.LevelWarning, map[string]any{
				"reason": "client payload is not a JSON object",
				"bytes":  len(data),
			})
			continue
		}

		if ev.Is(protocol.EventPromptStart) {
			var ps protocol.PromptStart
			if err := ev.Decode(&ps); err == nil && ps.PromptName != "" {
				c.sess.SetPromptName(ps.PromptName)
				c.emit(ctx, EventPrompt, observability.LevelVerbose, map[string]any{
					"prompt": ps.PromptName,
				})
			}
		}

		if err := c.sendModel(ctx, data); err != nil {
			return err
		}
	}
}

func (c *conn) modelToClient(ctx context.Context) error {
	for {
		data, err := c.model.Recv(ctx)
		if err != nil {
			return err
		}

		ev, err := protocol.Parse(data)
		if err != nil {
			if err := c.client.Send(ctx, protocol.RawData(data)); err != nil {
				return err
			}
			continue
		}

		switch ev.Type {
		case protocol.EventToolUse:
			var use protocol.ToolUse
			if err := ev.Decode(&use); err != nil {
				c.emit(ctx, EventError, observability.LevelWarning, map[string]any{
					"error": "malformed toolUse: " + err.Error(),
				})
				continue
			}

			c.emit(ctx, EventToolUse, observability.LevelInfo, map[string]any{
				"tool":        use.ToolName,
				"tool_use_id": use.ToolUseID,
			})

			if c.relay.cfg.DispatchOnToolUse {
				if err := c.runTool(ctx, use); err != nil {
					return err
				}
			} else {
				c.pending = &use
			}

			if !c.relay.cfg.ForwardToolUse {
				continue
			}

		case protocol.EventContentEnd:
			var ce protocol.ContentStart
			if err := ev.Decode(&ce); err == nil && ce.Type == protocol.ContentTool && c.pending != nil {
				use := *c.pending
				c.pending = nil
				if err := c.runTool(ctx, use); err != nil {
					return err
				}
			}
		}

		if err := c.client.Send(ctx, data); err != nil {
			return err
		}
	}
}

// runTool dispatches a tool call and writes its result to the model. Only
// a failure to write is returned; tool failures travel as error results.
func (c *conn) runTool(ctx context.Context, use protocol.ToolUse) error {
	start := time.Now()

	var result tools.ToolResult
	req, err := use.CallRequest()
	if err != nil {
		result = tools.Failure(err.Error())
	} else {
		result = c.dispatch(ctx, req)
	}

	prompt := use.PromptName
	if prompt == "" {
		prompt = c.sess.PromptName()
	}

	events, err := protocol.ToolResultEvents(prompt, use.ToolUseID, result)
	if err != nil {
		return err
	}
	if err := c.sendModel(ctx, events...); err != nil {
		return err
	}

	duration := time.Since(start)
	c.sess.RecordToolCall(session.ToolCall{
		ToolUseID: use.ToolUseID,
		ToolName:  use.ToolName,
		Status:    string(result.Status),
		Duration:  duration,
		At:        start,
	})

	data := map[string]any{
		"tool":        use.ToolName,
		"tool_use_id": use.ToolUseID,
		"status":      string(result.Status),
		"duration":    duration,
	}
	if !result.OK() {
		data["error"] = result.Error
	}
	c.emit(ctx, EventToolResult, observability.LevelInfo, data)
	return nil
}

// dispatch runs the call under the configured deadline. A handler still
// running at the deadline is answered with an error result and left to
// finish on its own; its late result is discarded.
func (c *conn) dispatch(ctx context.Context, req tools.CallRequest) tools.ToolResult {
	timeout := c.relay.cfg.ToolTimeout
	if timeout <= 0 {
		return c.relay.dispatcher.Dispatch(ctx, req)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan tools.ToolResult, 1)
	go func() {
		done <- c.relay.dispatcher.Dispatch(ctx, req)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		return tools.Failure(fmt.Sprintf("tool %s timed out: %v", req.ToolName, ctx.Err()))
	}
}
