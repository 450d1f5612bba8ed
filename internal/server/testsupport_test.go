package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/haneul-lab/lobbychat/internal/auth"
	"github.com/haneul-lab/lobbychat/internal/logging"
	"github.com/haneul-lab/lobbychat/internal/messages"
	"github.com/haneul-lab/lobbychat/internal/server"
	"github.com/haneul-lab/lobbychat/internal/users"
)

type testEnv struct {
	ts    *httptest.Server
	users *users.MemoryRepository
	store messages.Repository
}

// newTestEnv assembles a running gateway over in-memory stores. Passing a
// store lets tests substitute a failing message store.
func newTestEnv(t *testing.T, store messages.Repository) *testEnv {
	t.Helper()

	if store == nil {
		store = messages.NewMemoryRepository()
	}
	userRepo := users.NewMemoryRepository()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	cfg.BcryptCost = bcrypt.MinCost
	cfg.StoreTimeout = time.Second

	log := logging.NopLogger{}
	authService := auth.NewService(userRepo, bcrypt.MinCost, log)
	gateway := server.NewGateway(cfg, authService, store, log, nil)
	gateway.Start()

	ts := httptest.NewServer(gateway.Routes(nil))
	t.Cleanup(func() {
		ts.Close()
		_ = gateway.Shutdown(2 * time.Second)
	})

	return &testEnv{ts: ts, users: userRepo, store: store}
}

// wsClient wraps a WebSocket connection and splits newline-batched frames
// back into individual events. Frames are consumed by a background reader
// goroutine because gorilla/websocket treats any read error — including a
// deadline expiry — as permanent, so waiting with per-call read deadlines
// would poison the connection on the first timeout.
type wsClient struct {
	t       *testing.T
	conn    *websocket.Conn
	frames  chan []byte
	readErr chan error
	pending [][]byte
}

func (env *testEnv) dial(t *testing.T) *wsClient {
	t.Helper()

	u, err := url.Parse(env.ts.URL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"

	header := http.Header{}
	header.Set("Origin", env.ts.URL)

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket endpoint: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	client := &wsClient{
		t:       t,
		conn:    conn,
		frames:  make(chan []byte, 64),
		readErr: make(chan error, 1),
	}
	t.Cleanup(client.close)
	go client.readLoop()
	return client
}

func (c *wsClient) readLoop() {
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.readErr <- err
			return
		}
		c.frames <- frame
	}
}

func (c *wsClient) close() {
	_ = c.conn.Close()
}

func (c *wsClient) send(event string, data any) {
	c.t.Helper()
	if err := c.conn.WriteJSON(map[string]any{"event": event, "data": data}); err != nil {
		c.t.Fatalf("Failed to send %q event: %v", event, err)
	}
}

// next returns the next event, waiting up to timeout for a frame.
func (c *wsClient) next(timeout time.Duration) server.Envelope {
	c.t.Helper()

	if len(c.pending) == 0 {
		select {
		case frame := <-c.frames:
			c.pending = bytes.Split(frame, []byte{'\n'})
		case err := <-c.readErr:
			c.t.Fatalf("Failed to read event: %v", err)
		case <-time.After(timeout):
			c.t.Fatalf("Failed to read event: timed out after %v", timeout)
		}
	}

	raw := c.pending[0]
	c.pending = c.pending[1:]

	var env server.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.t.Fatalf("Failed to decode envelope %q: %v", raw, err)
	}
	return env
}

// expect reads the next event and asserts its name.
func (c *wsClient) expect(event string, timeout time.Duration) server.Envelope {
	c.t.Helper()
	env := c.next(timeout)
	if env.Event != event {
		c.t.Fatalf("Expected %q event, got %q (data: %s)", event, env.Event, env.Data)
	}
	return env
}

// expectNone asserts that no event arrives within timeout.
func (c *wsClient) expectNone(timeout time.Duration) {
	c.t.Helper()

	if len(c.pending) > 0 {
		c.t.Fatalf("Expected no event, but %d are already buffered", len(c.pending))
	}
	select {
	case frame := <-c.frames:
		c.t.Fatalf("Expected no event, but received: %s", frame)
	case err := <-c.readErr:
		c.t.Fatalf("Unexpected error while waiting for absence of events: %v", err)
	case <-time.After(timeout):
	}
}

func decodePayload[T any](t *testing.T, env server.Envelope) T {
	t.Helper()
	var payload T
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("Failed to decode %q payload: %v", env.Event, err)
	}
	return payload
}

// register authenticates a fresh connection by registering a new account.
func (c *wsClient) register(loginID, nickname string) {
	c.t.Helper()
	c.send(server.EventRegister, server.RegisterPayload{
		LoginID:  loginID,
		Password: "secret",
		Name:     "Test User",
		Nickname: nickname,
	})
	c.expect(server.EventRegisterSuccess, 2*time.Second)
}
