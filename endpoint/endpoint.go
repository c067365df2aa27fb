// Package endpoint opens bidirectional event streams to the speech-to-speech
// model. Two kinds are supported: Amazon Bedrock's bidirectional stream for
// production and a WebSocket gateway for local development.
package endpoint

import (
	"context"
	"errors"
	"fmt"
)

// Kinds of model endpoint.
const (
	KindBedrock   = "bedrock"
	KindWebSocket = "websocket"
)

// Sentinel errors for endpoint operations.
var (
	ErrUnknownKind = errors.New("unknown endpoint kind")
	ErrClosed      = errors.New("stream closed")
	ErrConfig      = errors.New("invalid endpoint configuration")
)

// Stream is one bidirectional JSON event stream. Send and Recv may be called
// concurrently with each other but neither concurrently with itself. Recv
// returns io.EOF when the peer ends the stream normally.
type Stream interface {
	Send(ctx context.Context, data []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// Endpoint opens a model stream per client connection.
type Endpoint interface {
	Open(ctx context.Context) (Stream, error)
}

// New creates an Endpoint from configuration.
func New(ctx context.Context, cfg *Config) (Endpoint, error) {
	switch cfg.Kind {
	case KindBedrock:
		return NewBedrock(ctx, cfg)
	case KindWebSocket:
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: websocket endpoint requires a url", ErrConfig)
		}
		return NewWebSocket(cfg.URL), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, cfg.Kind)
	}
}
