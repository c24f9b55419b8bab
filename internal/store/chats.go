package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Chat is a conversation. p2p chats have exactly two members.
type Chat struct {
	ID        string
	ChatType  string
	Name      string
	OwnerID   string
	CreatedAt int64
}

const chatColumns = "id, chat_type, name, owner_id, created_at"

func scanChat(row interface{ Scan(...any) error }) (*Chat, error) {
	var c Chat
	if err := row.Scan(&c.ID, &c.ChatType, &c.Name, &c.OwnerID, &c.CreatedAt); err != nil {
		return nil, one(err)
	}
	return &c, nil
}

// ChatByID returns the chat with the given id.
func (s *Store) ChatByID(ctx context.Context, id string) (*Chat, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+chatColumns+" FROM chats WHERE id = ?", id)
	return scanChat(row)
}

// FindOrCreateP2PChat returns the p2p chat between the two users,
// creating it (owned by ownerID) when none exists.
func (s *Store) FindOrCreateP2PChat(ctx context.Context, ownerID, otherID string) (*Chat, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+chatColumns+` FROM chats
		WHERE chat_type = 'p2p'
		  AND id IN (SELECT chat_id FROM chat_members WHERE user_id = ?)
		  AND id IN (SELECT chat_id FROM chat_members WHERE user_id = ?)
		LIMIT 1`, ownerID, otherID)
	chat, err := scanChat(row)
	if err == nil {
		return chat, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	chat = &Chat{
		ID:        uuid.NewString(),
		ChatType:  "p2p",
		OwnerID:   ownerID,
		CreatedAt: nowMillis(),
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning chat tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO chats ("+chatColumns+") VALUES (?, ?, ?, ?, ?)",
		chat.ID, chat.ChatType, chat.Name, chat.OwnerID, chat.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting chat: %w", err)
	}
	now := nowMillis()
	for _, member := range []string{ownerID, otherID} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chat_members (chat_id, user_id, joined_at) VALUES (?, ?, ?)",
			chat.ID, member, now); err != nil {
			return nil, fmt.Errorf("inserting chat member: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing chat tx: %w", err)
	}
	return chat, nil
}

// ChatsForUser returns every chat the user is a member of.
func (s *Store) ChatsForUser(ctx context.Context, userID string) ([]*Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chatColumns+` FROM chats
		WHERE id IN (SELECT chat_id FROM chat_members WHERE user_id = ?)
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	var chats []*Chat
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// ChatMembers returns the user ids of a chat's members.
func (s *Store) ChatMembers(ctx context.Context, chatID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM chat_members WHERE chat_id = ? ORDER BY joined_at", chatID)
	if err != nil {
		return nil, fmt.Errorf("listing chat members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// IsChatMember reports whether userID belongs to chatID.
func (s *Store) IsChatMember(ctx context.Context, chatID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chat_members WHERE chat_id = ? AND user_id = ?",
		chatID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking chat membership: %w", err)
	}
	return n > 0, nil
}
