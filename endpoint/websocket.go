package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/coder/websocket"
)

// ReadLimit bounds a single inbound WebSocket message. Audio chunks are
// base64 inside JSON and can be large.
const ReadLimit = 4 << 20

type wsStream struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

// NewWebSocketStream wraps an established connection as a Stream. Both the
// client side of the relay and the gateway endpoint use it.
func NewWebSocketStream(conn *websocket.Conn) Stream {
	conn.SetReadLimit(ReadLimit)
	return &wsStream{conn: conn}
}

func (s *wsStream) Send(ctx context.Context, data []byte) error {
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return normalize(err)
	}
	return nil
}

func (s *wsStream) Recv(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		return nil, normalize(err)
	}
	return data, nil
}

// Close is idempotent. Closing a connection the peer already closed is not
// an error.
func (s *wsStream) Close() error {
	s.closeOnce.Do(func() {
		err := s.conn.Close(websocket.StatusNormalClosure, "")
		switch normalize(err) {
		case nil, io.EOF, ErrClosed:
		default:
			s.closeErr = err
		}
	})
	return s.closeErr
}

// normalize maps an orderly close by the peer to io.EOF.
func normalize(err error) error {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return io.EOF
	}
	if errors.Is(err, net.ErrClosed) {
		return ErrClosed
	}
	return err
}

// WebSocket dials a model gateway that speaks the same JSON events over a
// WebSocket.
type WebSocket struct {
	url string
}

// NewWebSocket creates a gateway endpoint for url.
func NewWebSocket(url string) *WebSocket {
	return &WebSocket{url: url}
}

// Open dials the gateway.
func (w *WebSocket) Open(ctx context.Context) (Stream, error) {
	conn, _, err := websocket.Dial(ctx, w.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", w.url, err)
	}
	return NewWebSocketStream(conn), nil
}
