package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahedoge/cofly/pkg/auth"
	"github.com/shahedoge/cofly/pkg/server"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMakeUserID(t *testing.T) {
	a := MakeUserID("alice")
	assert.Equal(t, a, MakeUserID("alice"), "same username must map to same id")
	assert.NotEqual(t, a, MakeUserID("bob"))
	assert.Len(t, a, 36)
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &User{Username: "alice", PasswordHash: "hash", DisplayName: "Alice"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.Equal(t, MakeUserID("alice"), u.ID)
	assert.NotZero(t, u.CreatedAt)

	byID, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byName, err := s.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = s.UserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.CreateUser(ctx, &User{Username: "alice"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	require.NoError(t, s.SetPassword(ctx, u.ID, "newhash"))
	byID, err = s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", byID.PasswordHash)
}

func TestEnsureUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.EnsureUser(ctx, "bot")
	require.NoError(t, err)
	assert.Equal(t, MakeUserID("bot"), u.ID)
	assert.Equal(t, "bot", u.DisplayName)
	assert.Empty(t, u.PasswordHash)

	again, err := s.EnsureUser(ctx, "bot")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
}

func TestFindOrCreateP2PChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)
	bob, err := s.EnsureUser(ctx, "bob")
	require.NoError(t, err)
	carol, err := s.EnsureUser(ctx, "carol")
	require.NoError(t, err)

	chat, err := s.FindOrCreateP2PChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "p2p", chat.ChatType)
	assert.Equal(t, alice.ID, chat.OwnerID)

	// Same pair in either direction resolves to the same chat.
	same, err := s.FindOrCreateP2PChat(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, same.ID)

	other, err := s.FindOrCreateP2PChat(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.NotEqual(t, chat.ID, other.ID)

	members, err := s.ChatMembers(ctx, chat.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, members)

	isMember, err := s.IsChatMember(ctx, chat.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, isMember)
	isMember, err = s.IsChatMember(ctx, chat.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, isMember)

	chats, err := s.ChatsForUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, chats, 2)
	chats, err = s.ChatsForUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)
	bob, err := s.EnsureUser(ctx, "bob")
	require.NoError(t, err)
	chat, err := s.FindOrCreateP2PChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	m1 := &Message{ChatID: chat.ID, SenderID: alice.ID, MessageType: "text", Content: `{"text":"hi"}`, CreatedAt: 1000}
	m2 := &Message{ChatID: chat.ID, SenderID: bob.ID, MessageType: "text", Content: `{"text":"yo"}`, CreatedAt: 2000}
	require.NoError(t, s.CreateMessage(ctx, m1))
	require.NoError(t, s.CreateMessage(ctx, m2))

	got, err := s.MessageByID(ctx, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hi"}`, got.Content)

	require.NoError(t, s.UpdateMessage(ctx, m1.ID, "text", `{"text":"edited"}`))
	got, err = s.MessageByID(ctx, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"text":"edited"}`, got.Content)

	assert.ErrorIs(t, s.UpdateMessage(ctx, "missing", "text", "x"), ErrNotFound)

	all, err := s.MessagesInChat(ctx, chat.ID, 100, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, m1.ID, all[0].ID, "ascending creation order")

	recent, err := s.MessagesInChat(ctx, chat.ID, 100, 1500)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, m2.ID, recent[0].ID)

	limited, err := s.MessagesInChat(ctx, chat.ID, 1, 0)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDeleteMessagesBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)
	bob, err := s.EnsureUser(ctx, "bob")
	require.NoError(t, err)
	chat, err := s.FindOrCreateP2PChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	old := &Message{ChatID: chat.ID, SenderID: alice.ID, Content: "old", CreatedAt: 1000}
	fresh := &Message{ChatID: chat.ID, SenderID: alice.ID, Content: "fresh", CreatedAt: 9000}
	require.NoError(t, s.CreateMessage(ctx, old))
	require.NoError(t, s.CreateMessage(ctx, fresh))

	_, err = s.AddReaction(ctx, old.ID, bob.ID, "THUMBSUP")
	require.NoError(t, err)

	n, err := s.DeleteMessagesBefore(ctx, 5000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.MessageByID(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.MessageByID(ctx, fresh.ID)
	assert.NoError(t, err)

	reactions, err := s.ReactionsForMessage(ctx, old.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, reactions)
}

func TestMediaWithDBBlobStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	blobs := NewDBBlobStore(s)

	alice, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)

	m := &Media{UploaderID: alice.ID, FileName: "cat.png", ContentType: "image/png", MediaType: "image"}
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	require.NoError(t, s.CreateMedia(ctx, blobs, m, payload))
	require.NotEmpty(t, m.ID)

	meta, err := s.MediaByID(ctx, m.ID, "image")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", meta.FileName)

	_, err = s.MediaByID(ctx, m.ID, "file")
	assert.ErrorIs(t, err, ErrNotFound, "media type filter applies")

	data, err := blobs.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	_, err = blobs.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReactions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)
	bob, err := s.EnsureUser(ctx, "bob")
	require.NoError(t, err)
	chat, err := s.FindOrCreateP2PChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	msg := &Message{ChatID: chat.ID, SenderID: alice.ID, Content: "hi"}
	require.NoError(t, s.CreateMessage(ctx, msg))

	r, err := s.AddReaction(ctx, msg.ID, bob.ID, "SMILE")
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)

	list, err := s.ReactionsForMessage(ctx, msg.ID, 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "SMILE", list[0].EmojiType)

	assert.ErrorIs(t, s.DeleteReaction(ctx, "wrong-message", r.ID), ErrNotFound)
	require.NoError(t, s.DeleteReaction(ctx, msg.ID, r.ID))

	list, err = s.ReactionsForMessage(ctx, msg.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestResolver(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)

	open := NewResolver(s, auth.NewRegistrationPolicy(""))
	gated := NewResolver(s, auth.NewRegistrationPolicy("join-token"))

	// Known id resolves directly.
	id, err := open.Resolve(ctx, server.IdentityHint{UserID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)

	// Stale id falls back to username.
	id, err = open.Resolve(ctx, server.IdentityHint{UserID: "stale", Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)

	// Unknown username materializes under open registration.
	id, err = open.Resolve(ctx, server.IdentityHint{UserID: "x", Username: "newbot"})
	require.NoError(t, err)
	assert.Equal(t, MakeUserID("newbot"), id)

	// Gated registration refuses unknown usernames.
	_, err = gated.Resolve(ctx, server.IdentityHint{UserID: "y", Username: "stranger"})
	assert.ErrorIs(t, err, server.ErrNotRegistered)

	// No username to fall back on.
	_, err = gated.Resolve(ctx, server.IdentityHint{UserID: "z"})
	assert.ErrorIs(t, err, server.ErrUserNotFound)
}

func TestGCSweep(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.EnsureUser(ctx, "alice")
	require.NoError(t, err)
	bob, err := s.EnsureUser(ctx, "bob")
	require.NoError(t, err)
	chat, err := s.FindOrCreateP2PChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	stale := &Message{ChatID: chat.ID, SenderID: alice.ID, Content: "stale",
		CreatedAt: time.Now().Add(-72 * time.Hour).UnixMilli()}
	fresh := &Message{ChatID: chat.ID, SenderID: alice.ID, Content: "fresh"}
	require.NoError(t, s.CreateMessage(ctx, stale))
	require.NoError(t, s.CreateMessage(ctx, fresh))

	gc := NewGC(s, time.Hour, 48*time.Hour, nil)
	gc.sweep(ctx)

	_, err = s.MessageByID(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.MessageByID(ctx, fresh.ID)
	assert.NoError(t, err)
}
