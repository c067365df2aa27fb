package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tailored-agentic-units/callcenter/endpoint"
	"github.com/tailored-agentic-units/callcenter/industries"
	"github.com/tailored-agentic-units/callcenter/observability"
	"github.com/tailored-agentic-units/callcenter/server"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to YAML config file")
		envFile    = flag.String("env", "", "Path to industry .env file")
		industry   = flag.String("industry", "", "Tool set: "+strings.Join(industries.Names(), ", ")+" (overrides config)")
		addr       = flag.String("addr", "", "Listen address (overrides config and PORT)")
		modelURL   = flag.String("model-url", "", "WebSocket model gateway URL; selects the websocket endpoint")
		toolsURL   = flag.String("tools-url", "", "Remote tool service base URL; relay dispatches there instead of locally")
		observer   = flag.String("observer", "", "Event observer: "+strings.Join(observability.ObserverNames(), ", ")+" (overrides config)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
		jsonLogs   = flag.Bool("json-logs", false, "Write logs as JSON")
	)
	flag.Parse()

	cfg := server.DefaultConfig()
	if *configFile != "" {
		loaded, err := server.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	if *industry != "" {
		cfg.Industry = *industry
	}

	env, err := server.LoadEnv(*envFile)
	if err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	cfg.ApplyEnv(env)
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *observer != "" {
		cfg.Observer = *observer
	}
	if *modelURL != "" {
		cfg.Endpoint.Kind = endpoint.KindWebSocket
		cfg.Endpoint.URL = *modelURL
	}

	level := logLevel(cfg.LogLevel)
	if *verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if *jsonLogs {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serverOpts []server.Option
	if *toolsURL != "" {
		serverOpts = append(serverOpts, server.WithDispatcher(server.NewToolClient(http.DefaultClient, *toolsURL)))
	}

	srv, err := server.New(ctx, &cfg, serverOpts...)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		os.Exit(1)
	}
}

// logLevel maps LOGLEVEL values to slog levels. Unknown values mean info.
func logLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	}
	return slog.LevelInfo
}
