// Package server composes the call center relay from configuration: record
// stores, knowledge base, industry tool set, model endpoint, and relay, and
// serves them over HTTP.
//
//	srv, err := server.New(ctx, cfg)
//	err = srv.Run(ctx)
//
// Routes:
//
//	GET  /ws       WebSocket relay, one session per connection
//	GET  /healthz  liveness
//	GET  /tools    promptStart toolConfiguration for the active tool set
//	POST /callcenter.v1.ToolService/*  Connect tool service
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/tailored-agentic-units/callcenter/core/protocol"
	"github.com/tailored-agentic-units/callcenter/endpoint"
	"github.com/tailored-agentic-units/callcenter/industries"
	"github.com/tailored-agentic-units/callcenter/knowledge"
	"github.com/tailored-agentic-units/callcenter/observability"
	"github.com/tailored-agentic-units/callcenter/relay"
	"github.com/tailored-agentic-units/callcenter/session"
	"github.com/tailored-agentic-units/callcenter/store"
	"github.com/tailored-agentic-units/callcenter/tools"
)

// Option overrides a config-created subsystem. Options are applied before
// initialization so overridden subsystems are never built.
type Option func(*Server)

// WithObserver overrides the config-selected observer.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithRegistry overrides the config-created tool registry.
func WithRegistry(r *tools.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithDispatcher routes relay tool calls somewhere other than the local
// registry, such as a remote ToolClient.
func WithDispatcher(d relay.Dispatcher) Option {
	return func(s *Server) { s.dispatcher = d }
}

// WithEndpoint overrides the config-created model endpoint.
func WithEndpoint(e endpoint.Endpoint) Option {
	return func(s *Server) { s.endpoint = e }
}

// WithStores overrides the config-opened record stores.
func WithStores(c *store.Catalog) Option {
	return func(s *Server) { s.stores = c }
}

// Server serves the relay and tool service.
type Server struct {
	cfg        Config
	observer   observability.Observer
	registry   *tools.Registry
	dispatcher relay.Dispatcher
	endpoint   endpoint.Endpoint
	stores     *store.Catalog
	relay      *relay.Relay
}

// New creates a Server from configuration.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Server, error) {
	s := &Server{cfg: *cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.observer == nil {
		o, err := observability.GetObserver(cfg.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to create observer: %w", err)
		}
		s.observer = o
	}

	if s.registry == nil {
		reg, err := s.buildRegistry(ctx)
		if err != nil {
			return nil, err
		}
		s.registry = reg
	}

	if s.dispatcher == nil {
		s.dispatcher = s.registry
	}

	if s.endpoint == nil {
		ep, err := endpoint.New(ctx, &cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create model endpoint: %w", err)
		}
		s.endpoint = ep
	}

	s.relay = relay.New(&cfg.Relay, s.dispatcher, relay.WithObserver(s.observer))
	return s, nil
}

func (s *Server) buildRegistry(ctx context.Context) (*tools.Registry, error) {
	if s.stores == nil {
		stores, err := store.Open(ctx, &s.cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to open record stores: %w", err)
		}
		s.stores = stores
	}

	kb := knowledge.Default()
	if s.cfg.KnowledgePath != "" {
		loaded, err := knowledge.LoadFile(s.cfg.KnowledgePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load knowledge base: %w", err)
		}
		kb = loaded
	}

	reg := tools.NewRegistry(tools.WithObserver(s.observer))
	deps := industries.Deps{Stores: s.stores, Knowledge: kb}
	if err := industries.Install(s.cfg.Industry, reg, deps); err != nil {
		return nil, fmt.Errorf("failed to install tools: %w", err)
	}
	return reg, nil
}

// Registry returns the tool registry backing the tool service.
func (s *Server) Registry() *tools.Registry {
	return s.registry
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /tools", s.handleTools)
	mux.HandleFunc("/ws", s.handleWS)

	path, handler := NewToolServiceHandler(s.registry)
	mux.Handle(path, handler)
	return mux
}

// Run listens on the configured address until ctx is canceled, then shuts
// down gracefully. Open relay sessions are canceled with ctx.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.emit(ctx, EventStart, observability.LevelInfo, map[string]any{
		"addr":     ln.Addr().String(),
		"industry": s.cfg.Industry,
		"tools":    s.registry.Len(),
		"endpoint": s.cfg.Endpoint.Kind,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.emit(shutdownCtx, EventStop, observability.LevelInfo, nil)
	return err
}

func (s *Server) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	s.observer.OnEvent(ctx, observability.NewEvent(t, level, "server.Server", data))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	cfg, err := protocol.NewToolConfiguration(s.registry.List())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.Origins,
	})
	if err != nil {
		return
	}
	client := endpoint.NewWebSocketStream(conn)
	ctx := r.Context()

	sess, err := session.New(&s.cfg.Session)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "session unavailable")
		return
	}

	s.emit(ctx, EventAccept, observability.LevelInfo, map[string]any{
		"session": sess.ID(),
		"remote":  r.RemoteAddr,
	})

	model, err := s.endpoint.Open(ctx)
	if err != nil {
		s.emit(ctx, EventModelError, observability.LevelError, map[string]any{
			"session": sess.ID(),
			"error":   err.Error(),
		})
		msg := fmt.Sprintf("%v: %v", ErrModelUnavailable, err)
		client.Send(ctx, protocol.ErrorMessage("error", msg))
		conn.Close(websocket.StatusInternalError, ErrModelUnavailable.Error())
		sess.Disconnect()
		return
	}

	if err := s.relay.Serve(ctx, sess, client, model); err != nil {
		s.emit(ctx, EventRelayError, observability.LevelError, map[string]any{
			"session": sess.ID(),
			"error":   err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
