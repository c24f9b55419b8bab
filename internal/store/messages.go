package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Message is one chat message. RootID and ParentID are empty for
// top-level messages; replies carry the thread root and the direct
// parent respectively.
type Message struct {
	ID          string
	ChatID      string
	SenderID    string
	MessageType string
	Content     string
	RootID      string
	ParentID    string
	CreatedAt   int64
}

const messageColumns = "id, chat_id, sender_id, message_type, content, root_id, parent_id, created_at"

func scanMessage(row interface{ Scan(...any) error }) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.MessageType,
		&m.Content, &m.RootID, &m.ParentID, &m.CreatedAt)
	if err != nil {
		return nil, one(err)
	}
	return &m, nil
}

// CreateMessage inserts m, filling ID and CreatedAt when unset.
func (s *Store) CreateMessage(ctx context.Context, m *Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = nowMillis()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages ("+messageColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		m.ID, m.ChatID, m.SenderID, m.MessageType, m.Content, m.RootID, m.ParentID, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// MessageByID returns the message with the given id.
func (s *Store) MessageByID(ctx context.Context, id string) (*Message, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
	return scanMessage(row)
}

// UpdateMessage replaces a message's type and content.
func (s *Store) UpdateMessage(ctx context.Context, id, messageType, content string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET message_type = ?, content = ? WHERE id = ?",
		messageType, content, id)
	if err != nil {
		return fmt.Errorf("updating message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// MessagesInChat lists up to limit messages in a chat in ascending
// creation order. A non-zero sinceMillis restricts the listing to
// messages created at or after that time.
func (s *Store) MessagesInChat(ctx context.Context, chatID string, limit int, sinceMillis int64) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = ? AND created_at >= ?
		ORDER BY created_at ASC
		LIMIT ?`, chatID, sinceMillis, limit)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteMessagesBefore removes messages created before cutoffMillis and
// returns how many were deleted. Reactions on deleted messages go too.
func (s *Store) DeleteMessagesBefore(ctx context.Context, cutoffMillis int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning gc tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM reactions WHERE message_id IN (SELECT id FROM messages WHERE created_at < ?)",
		cutoffMillis); err != nil {
		return 0, fmt.Errorf("deleting stale reactions: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		"DELETE FROM messages WHERE created_at < ?", cutoffMillis)
	if err != nil {
		return 0, fmt.Errorf("deleting stale messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing gc tx: %w", err)
	}
	return n, nil
}
