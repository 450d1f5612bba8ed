// Package server defines the event envelope and payload types exchanged
// with clients over the WebSocket channel.
package server

import (
	"encoding/json"
	"strings"
	"time"
)

// Event names carried in the envelope. The inbound names mirror what chat
// clients emit; the outbound names are the server's responses.
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventRequestHistory = "request history"
	EventChatMessage    = "chat message"

	EventRegisterSuccess = "register_success"
	EventLoginSuccess    = "login_success"
	EventAuthError       = "auth_error"
	EventError           = "error"
)

// Envelope is the framing for every message on the socket:
// {"event": <name>, "data": <payload>}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RegisterPayload is the client request to create an account.
type RegisterPayload struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
}

// LoginPayload is the client request to authenticate a connection.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginSuccessPayload acknowledges a successful login.
type LoginSuccessPayload struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// ChatPayload is an inbound chat message. The user field is the display
// handle the client chose to send under.
type ChatPayload struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// ChatBroadcastPayload is the outbound form of a chat message, stamped with
// the server-assigned time. The same payload shape is used for live
// broadcasts and for history replay.
type ChatBroadcastPayload struct {
	User string `json:"user"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// NoticePayload carries a human-readable message for acknowledgements and
// errors.
type NoticePayload struct {
	Message string `json:"message"`
}

// FormatTimestamp renders a server timestamp for the wire. Timestamps are
// stamped in UTC at microsecond precision so the value survives a round
// trip through the message store unchanged.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeEvent(event string, data any) ([]byte, error) {
	env := struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data}
	return json.Marshal(env)
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
