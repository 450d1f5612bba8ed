package messages

import "context"

// Repository is the persistence contract for the message log.
//
// Recent returns the most recent limit messages of a room re-ordered oldest
// first, so iteration order is monotonic non-decreasing in CreatedAt. Append
// assigns the record id and the store ordering key.
type Repository interface {
	Append(ctx context.Context, msg *Message) error
	Recent(ctx context.Context, room string, limit int) ([]Message, error)
}
