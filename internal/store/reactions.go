package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Reaction is an emoji reaction on a message.
type Reaction struct {
	ID        string
	MessageID string
	UserID    string
	EmojiType string
	CreatedAt int64
}

// AddReaction inserts a reaction and returns it with its id filled.
func (s *Store) AddReaction(ctx context.Context, messageID, userID, emojiType string) (*Reaction, error) {
	r := &Reaction{
		ID:        uuid.NewString(),
		MessageID: messageID,
		UserID:    userID,
		EmojiType: emojiType,
		CreatedAt: nowMillis(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO reactions (id, message_id, user_id, emoji_type, created_at) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.MessageID, r.UserID, r.EmojiType, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting reaction: %w", err)
	}
	return r, nil
}

// DeleteReaction removes a reaction scoped to its message.
func (s *Store) DeleteReaction(ctx context.Context, messageID, reactionID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM reactions WHERE id = ? AND message_id = ?", reactionID, messageID)
	if err != nil {
		return fmt.Errorf("deleting reaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReactionsForMessage lists up to limit reactions on a message.
func (s *Store) ReactionsForMessage(ctx context.Context, messageID string, limit int) ([]*Reaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_id, user_id, emoji_type, created_at FROM reactions
		WHERE message_id = ?
		ORDER BY created_at
		LIMIT ?`, messageID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reactions: %w", err)
	}
	defer rows.Close()

	var reactions []*Reaction
	for rows.Next() {
		var r Reaction
		if err := rows.Scan(&r.ID, &r.MessageID, &r.UserID, &r.EmojiType, &r.CreatedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, &r)
	}
	return reactions, rows.Err()
}
