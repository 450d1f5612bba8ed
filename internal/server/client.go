// Package server manages individual WebSocket clients, handling read/write
// pumps, session state, and lifecycle control for each connection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/haneul-lab/lobbychat/internal/auth"
)

// sessionState tracks where a connection is in its lifecycle. A connection
// starts unauthenticated, becomes authenticated after a successful register
// or login, joins after requesting history, and is closed on disconnect.
// The state carries nothing across reconnects: every new connection starts
// over.
type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateJoined
	stateClosed
)

// Client represents one WebSocket connection in the chat system. It holds
// the connection state, the buffered send channel drained by the write
// pump, and the session identity once authentication succeeds.
//
// state and identity are only touched by the client's own readPump
// goroutine, so they need no locking.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	gateway  *Gateway
	id       string
	addr     string
	closed   bool
	state    sessionState
	identity *auth.Identity
	joinedAt time.Time
}

// NewClient creates a new Client for the provided WebSocket connection. The
// send channel is buffered to absorb broadcast bursts.
func NewClient(conn *websocket.Conn, gateway *Gateway, addr string) *Client {
	if conn != nil {
		conn.SetReadLimit(gateway.cfg.MaxMessageSize)
	}

	return &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		gateway:  gateway,
		id:       uuid.NewString(),
		addr:     addr,
		state:    stateUnauthenticated,
		joinedAt: time.Now().UTC(),
	}
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.gateway.log.Error(context.Background(), "error setting initial read deadline", "addr", c.addr, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			c.gateway.log.Error(context.Background(), "error setting read deadline in pong handler", "addr", c.addr, "error", err)
		}
		return nil
	})
}

// handleReadError logs appropriate error messages based on the error type
// and returns true if the read loop should break
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	ctx := context.Background()

	if errors.Is(err, websocket.ErrReadLimit) {
		c.gateway.log.Warn(ctx, "message exceeded maximum size", "addr", c.addr, "limit", c.gateway.cfg.MaxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.gateway.log.Info(ctx, "client disconnected", "addr", c.addr, "error", err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.gateway.log.Info(ctx, "client connection closed", "addr", c.addr, "error", err)
		return true
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		c.gateway.log.Warn(ctx, "unexpected WebSocket error", "addr", c.addr, "error", err)
		return true
	}

	c.gateway.log.Warn(ctx, "WebSocket read error", "addr", c.addr, "error", err)
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.state = stateClosed
		c.gateway.hub.unregister <- c
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				c.gateway.log.Error(context.Background(), "error closing connection in readPump", "error", err)
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
			continue
		}

		c.handleEvent(rawMessage)
	}
}

// handleEvent dispatches one inbound envelope. Slow work (bcrypt, store
// round-trips) runs inline: it only ever stalls this connection's reads,
// never another connection or the hub.
func (c *Client) handleEvent(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.gateway.log.Warn(context.Background(), "invalid message frame", "addr", c.addr, "error", err)
		c.reply(EventError, NoticePayload{Message: "malformed event"})
		return
	}

	switch env.Event {
	case EventRegister:
		c.handleRegister(env.Data)
	case EventLogin:
		c.handleLogin(env.Data)
	case EventRequestHistory:
		c.handleHistoryRequest()
	case EventChatMessage:
		c.handleChat(env.Data)
	default:
		c.reply(EventError, NoticePayload{Message: "unknown event: " + env.Event})
	}
}

func (c *Client) handleRegister(data json.RawMessage) {
	var payload RegisterPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.reply(EventAuthError, NoticePayload{Message: "malformed register payload"})
		return
	}

	ctx, cancel := c.gateway.storeContext()
	defer cancel()

	userID, err := c.gateway.auth.Register(ctx, payload.LoginID, payload.Password, payload.Name, payload.Nickname)
	if err != nil {
		c.replyAuthError(ctx, "register", err)
		return
	}

	c.state = stateAuthenticated
	c.identity = &auth.Identity{
		UserID:   userID,
		LoginID:  payload.LoginID,
		Name:     payload.Name,
		Nickname: payload.Nickname,
	}
	c.reply(EventRegisterSuccess, NoticePayload{Message: "registration complete"})
}

func (c *Client) handleLogin(data json.RawMessage) {
	var payload LoginPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.reply(EventAuthError, NoticePayload{Message: "malformed login payload"})
		return
	}

	ctx, cancel := c.gateway.storeContext()
	defer cancel()

	identity, err := c.gateway.auth.Login(ctx, payload.Username, payload.Password)
	if err != nil {
		c.replyAuthError(ctx, "login", err)
		return
	}

	c.state = stateAuthenticated
	c.identity = identity
	c.reply(EventLoginSuccess, LoginSuccessPayload{Username: identity.LoginID, IsAdmin: identity.IsAdmin})
}

// handleHistoryRequest transitions an authenticated connection to joined
// and streams the backlog to this connection only. A failing store degrades
// to an empty backlog instead of failing the connection, and a repeated
// request simply replays the same sequence.
func (c *Client) handleHistoryRequest() {
	if c.state < stateAuthenticated {
		c.reply(EventError, NoticePayload{Message: "authentication required"})
		return
	}

	c.state = stateJoined

	ctx, cancel := c.gateway.storeContext()
	defer cancel()

	backlog, err := c.gateway.history.Recent(ctx, c.gateway.hub.room, c.gateway.cfg.HistoryLimit)
	if err != nil {
		if c.gateway.metrics != nil {
			c.gateway.metrics.RecordStoreError()
		}
		c.gateway.log.Error(ctx, "history replay degraded to empty backlog", "addr", c.addr, "error", err)
		return
	}

	for _, msg := range backlog {
		c.reply(EventChatMessage, ChatBroadcastPayload{
			User: msg.Author,
			Text: msg.Text,
			Time: FormatTimestamp(msg.SentAt),
		})
	}

	if c.gateway.metrics != nil {
		c.gateway.metrics.RecordHistoryReplay()
	}
	c.gateway.log.Info(ctx, "history replayed", "addr", c.addr, "messages", len(backlog))
}

func (c *Client) handleChat(data json.RawMessage) {
	if c.state < stateAuthenticated {
		c.reply(EventError, NoticePayload{Message: "authentication required"})
		return
	}

	var payload ChatPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.reply(EventError, NoticePayload{Message: "malformed chat payload"})
		return
	}

	// The payload's display handle is trusted as sent; the text is opaque
	// to the server and passed through byte for byte.
	c.gateway.hub.Submit(payload.User, payload.Text)
}

// reply enqueues an event for this connection only. Delivery goes through
// the hub's registry check so a concurrently closed connection drops the
// reply instead of panicking on a closed channel.
func (c *Client) reply(event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		c.gateway.log.Error(context.Background(), "failed to encode reply", "event", event, "error", err)
		return
	}
	c.gateway.hub.safeSend(c, payload)
}

// replyAuthError maps a register/login failure to the wire. Validation,
// conflict, and credential errors carry their own message; anything else is
// a storage-side failure that is logged and collapsed to a generic notice.
func (c *Client) replyAuthError(ctx context.Context, op string, err error) {
	if c.gateway.metrics != nil {
		c.gateway.metrics.RecordAuthFailure()
	}

	var validationErr *auth.ValidationError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, auth.ErrLoginTaken),
		errors.Is(err, auth.ErrInvalidCredentials):
		c.reply(EventAuthError, NoticePayload{Message: err.Error()})
	default:
		c.gateway.log.Error(ctx, "auth operation failed against store", "op", op, "addr", c.addr, "error", err)
		c.reply(EventAuthError, NoticePayload{Message: "service unavailable, try again later"})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			c.gateway.log.Error(context.Background(), "error closing connection in writePump", "error", err)
		}
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.gateway.log.Error(context.Background(), "error setting write deadline", "addr", c.addr, "error", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.gateway.log.Error(context.Background(), "error writing close message", "addr", c.addr, "error", err)
		}
	}
	return false
}

// writeTextMessage writes a text message and any queued messages
func (c *Client) writeTextMessage(message []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.gateway.log.Error(context.Background(), "error creating writer", "addr", c.addr, "error", err)
		return false
	}

	if _, err := w.Write(message); err != nil {
		c.gateway.log.Error(context.Background(), "error writing message", "addr", c.addr, "error", err)
		return false
	}

	if !c.writeQueuedMessages(w) {
		return false
	}

	if err := w.Close(); err != nil {
		c.gateway.log.Error(context.Background(), "error closing writer", "addr", c.addr, "error", err)
		return false
	}
	return true
}

// writeQueuedMessages drains messages already queued on the send channel
// into the same frame writer, newline separated.
func (c *Client) writeQueuedMessages(w io.WriteCloser) bool {
	n := len(c.send)
	for i := 0; i < n; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			c.gateway.log.Error(context.Background(), "error writing newline", "addr", c.addr, "error", err)
			return false
		}
		if _, err := w.Write(<-c.send); err != nil {
			c.gateway.log.Error(context.Background(), "error writing queued message", "addr", c.addr, "error", err)
			return false
		}
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.gateway.log.Error(context.Background(), "error setting write deadline for ping", "addr", c.addr, "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.gateway.log.Error(context.Background(), "error writing ping message", "addr", c.addr, "error", err)
		return false
	}
	return true
}
