package messages

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository stores messages in the messages table, ordered by
// created_at.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Room == "" {
		msg.Room = DefaultRoom
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO messages (id, author, text, room, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.Author, msg.Text, msg.Room, msg.SentAt, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Recent(ctx context.Context, room string, limit int) ([]Message, error) {
	if room == "" {
		room = DefaultRoom
	}

	// Take the newest limit rows, then flip them so the caller streams the
	// backlog oldest first.
	query := `
		SELECT id, author, text, room, sent_at, created_at
		FROM messages
		WHERE room = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, room, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Author, &msg.Text, &msg.Room, &msg.SentAt, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	oldestFirst := make([]Message, len(newestFirst))
	for i, msg := range newestFirst {
		oldestFirst[len(newestFirst)-1-i] = msg
	}

	return oldestFirst, nil
}

var _ Repository = (*PostgresRepository)(nil)
