package server

import (
	"encoding/json"
	"testing"
	"time"
)

// TestEncodeEventEnvelope verifies the wire framing of outbound events.
func TestEncodeEventEnvelope(t *testing.T) {
	raw, err := encodeEvent(EventChatMessage, ChatBroadcastPayload{
		User: "alice",
		Text: "hi there",
		Time: "2026-03-01T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("encodeEvent failed: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if env.Event != EventChatMessage {
		t.Errorf("Expected event %q, got %q", EventChatMessage, env.Event)
	}

	var payload ChatBroadcastPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if payload.User != "alice" || payload.Text != "hi there" {
		t.Errorf("Payload did not round-trip: %+v", payload)
	}
}

// TestFormatTimestampStable verifies that a microsecond-truncated stamp
// renders identically after a parse round trip, which is what keeps the
// broadcast time and the replayed time equal.
func TestFormatTimestampStable(t *testing.T) {
	stamp := time.Now().UTC().Truncate(time.Microsecond)
	rendered := FormatTimestamp(stamp)

	parsed, err := time.Parse(time.RFC3339Nano, rendered)
	if err != nil {
		t.Fatalf("Rendered timestamp does not parse: %v", err)
	}
	if FormatTimestamp(parsed) != rendered {
		t.Errorf("Timestamp not stable across round trip: %q vs %q", FormatTimestamp(parsed), rendered)
	}
	if !parsed.Equal(stamp) {
		t.Errorf("Parsed timestamp differs from original: %v vs %v", parsed, stamp)
	}
}
