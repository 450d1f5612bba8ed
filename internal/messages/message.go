// Package messages implements the message store: a durable, time-ordered
// append log of chat messages.
package messages

import "time"

// DefaultRoom is the single implicit room every message belongs to.
const DefaultRoom = "lobby"

// Message is one chat message as accepted by the broadcast router.
//
// Author is the handle string at the time of send, not a foreign key:
// historical messages keep the name as sent. Text is opaque to the server;
// it is stored and replayed byte for byte without interpretation. SentAt is
// the single authoritative server timestamp assigned at receipt, shared by
// the broadcast payload and the persisted record.
type Message struct {
	ID        string
	Author    string
	Text      string
	Room      string
	SentAt    time.Time
	CreatedAt time.Time
}
