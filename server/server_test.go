package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/tailored-agentic-units/callcenter/core/protocol"
	"github.com/tailored-agentic-units/callcenter/endpoint"
	"github.com/tailored-agentic-units/callcenter/observability"
	"github.com/tailored-agentic-units/callcenter/server"
	"github.com/tailored-agentic-units/callcenter/store"
)

// modelStream is the model side of a relayed connection, driven by the
// test.
type modelStream struct {
	fromRelay chan []byte
	toRelay   chan []byte
	done      chan struct{}
	once      sync.Once
}

func (m *modelStream) Send(ctx context.Context, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return endpoint.ErrClosed
	case m.fromRelay <- data:
		return nil
	}
}

func (m *modelStream) Recv(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, endpoint.ErrClosed
	case data := <-m.toRelay:
		return data, nil
	}
}

func (m *modelStream) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

type fakeEndpoint struct {
	streams chan *modelStream
	err     error
}

func (f *fakeEndpoint) Open(context.Context) (endpoint.Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := &modelStream{
		fromRelay: make(chan []byte, 16),
		toRelay:   make(chan []byte, 16),
		done:      make(chan struct{}),
	}
	f.streams <- m
	return m, nil
}

func newServer(t *testing.T, ep endpoint.Endpoint) *httptest.Server {
	t.Helper()

	cfg := server.DefaultConfig()
	stores, err := store.Open(context.Background(), &cfg.Store)
	if err != nil {
		t.Fatal(err)
	}
	customers, err := stores.Table(store.TableCustomers)
	if err != nil {
		t.Fatal(err)
	}
	err = customers.Put(context.Background(), store.Record{
		"phone_number": "+15551234567",
		"name":         "John Doe",
		"plan":         "unlimited",
	})
	if err != nil {
		t.Fatal(err)
	}

	srv, err := server.New(context.Background(), &cfg,
		server.WithStores(stores),
		server.WithEndpoint(ep),
		server.WithObserver(observability.NoOpObserver{}),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}

func recv(t *testing.T, ch <-chan []byte) protocol.Event {
	t.Helper()
	select {
	case data := <-ch:
		ev, err := protocol.Parse(data)
		if err != nil {
			t.Fatal(err)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for model event")
	}
	return protocol.Event{}
}

func TestServer_Relay(t *testing.T) {
	ep := &fakeEndpoint{streams: make(chan *modelStream, 1)}
	ts := newServer(t, ep)
	conn := dial(t, ts)

	status, err := protocol.Parse(read(t, conn))
	if err != nil {
		t.Fatal(err)
	}
	if status.Type != protocol.EventConnectionStatus {
		t.Fatalf("got %q, want %q", status.Type, protocol.EventConnectionStatus)
	}

	var model *modelStream
	select {
	case model = <-ep.streams:
	case <-time.After(2 * time.Second):
		t.Fatal("model stream not opened")
	}

	start, _ := protocol.New(protocol.EventPromptStart, protocol.PromptStart{PromptName: "p-1"})
	if err := conn.Write(context.Background(), websocket.MessageText, start); err != nil {
		t.Fatal(err)
	}
	if ev := recv(t, model.fromRelay); !ev.Is(protocol.EventPromptStart) {
		t.Fatalf("got %q, want %q", ev.Type, protocol.EventPromptStart)
	}

	use, _ := protocol.New(protocol.EventToolUse, protocol.ToolUse{
		PromptName: "p-1",
		ToolName:   "customerLookup",
		ToolUseID:  "tu-1",
		Content:    `{"phone_number":"+15551234567"}`,
	})
	end, _ := protocol.New(protocol.EventContentEnd, map[string]any{"type": protocol.ContentTool})
	model.toRelay <- use
	model.toRelay <- end

	recv(t, model.fromRelay)
	body := recv(t, model.fromRelay)
	recv(t, model.fromRelay)

	var tr struct {
		Content string `json:"content"`
	}
	if err := body.Decode(&tr); err != nil {
		t.Fatal(err)
	}
	var result struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	if err := json.Unmarshal([]byte(tr.Content), &result); err != nil {
		t.Fatal(err)
	}
	if result.Status != "success" || result.Data["name"] != "John Doe" {
		t.Errorf("unexpected result: %s", tr.Content)
	}

	if got := read(t, conn); string(got) != string(end) {
		t.Errorf("forwarded: got %s, want %s", got, end)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	select {
	case <-model.done:
	case <-time.After(2 * time.Second):
		t.Error("model stream not closed after client left")
	}
}

func TestServer_ModelUnavailable(t *testing.T) {
	ts := newServer(t, &fakeEndpoint{err: errors.New("no credentials")})
	conn := dial(t, ts)

	var msg map[string]string
	if err := json.Unmarshal(read(t, conn), &msg); err != nil {
		t.Fatal(err)
	}
	if msg["status"] != "error" {
		t.Errorf("status: got %q, want %q", msg["status"], "error")
	}
	if !strings.Contains(msg["error"], "no credentials") {
		t.Errorf("error: got %q", msg["error"])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	if got := websocket.CloseStatus(err); got != websocket.StatusInternalError {
		t.Errorf("close status: got %v, want %v", got, websocket.StatusInternalError)
	}
}

func TestServer_Health(t *testing.T) {
	ts := newServer(t, &fakeEndpoint{})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("got %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestServer_Tools(t *testing.T) {
	ts := newServer(t, &fakeEndpoint{})

	resp, err := http.Get(ts.URL + "/tools")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var cfg protocol.ToolConfiguration
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, entry := range cfg.Tools {
		names = append(names, entry.ToolSpec.Name)
		if entry.ToolSpec.InputSchema.JSON == "" {
			t.Errorf("%s: empty input schema", entry.ToolSpec.Name)
		}
	}
	want := "customerLookup,userProfileSearch,lookup"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestServer_Serve_Shutdown(t *testing.T) {
	cfg := server.DefaultConfig()
	srv, err := server.New(context.Background(), &cfg,
		server.WithEndpoint(&fakeEndpoint{}),
		server.WithObserver(observability.NoOpObserver{}),
	)
	if err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestNew_UnknownIndustry(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.Industry = "retail"

	_, err := server.New(context.Background(), &cfg,
		server.WithEndpoint(&fakeEndpoint{}),
		server.WithObserver(observability.NoOpObserver{}),
	)
	if err == nil {
		t.Fatal("expected error for unknown industry")
	}
}
