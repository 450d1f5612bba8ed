package messages

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps the message log in process memory, append-only
// under a mutex. It backs the non-persistent mode and the tests.
type MemoryRepository struct {
	mu  sync.Mutex
	log []Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Append(_ context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Room == "" {
		msg.Room = DefaultRoom
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = append(r.log, *msg)
	return nil
}

func (r *MemoryRepository) Recent(_ context.Context, room string, limit int) ([]Message, error) {
	if room == "" {
		room = DefaultRoom
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var inRoom []Message
	for _, msg := range r.log {
		if msg.Room == room {
			inRoom = append(inRoom, msg)
		}
	}

	if limit > 0 && len(inRoom) > limit {
		inRoom = inRoom[len(inRoom)-limit:]
	}

	out := make([]Message, len(inRoom))
	copy(out, inRoom)
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
