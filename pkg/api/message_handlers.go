package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shahedoge/cofly/internal/store"
	"github.com/shahedoge/cofly/pkg/event"
)

type sendMessageRequest struct {
	ReceiveID string `json:"receive_id"`
	MsgType   string `json:"msg_type"`
	Content   string `json:"content"`
}

type replyMessageRequest struct {
	MsgType string `json:"msg_type"`
	Content string `json:"content"`
}

type patchMessageRequest struct {
	MsgType string `json:"msg_type"`
	Content string `json:"content"`
}

func millisString(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

// saveAndPush persists a message and fans it out to every chat member:
// the sender receives a sync event, everyone else a receive event, and
// the sender finally gets an ack whose status reflects whether any
// recipient was reached live.
func (a *API) saveAndPush(ctx context.Context, sender *store.User, chat *store.Chat, msgType, content, rootID, parentID string) (*store.Message, error) {
	msg := &store.Message{
		ChatID:      chat.ID,
		SenderID:    sender.ID,
		MessageType: msgType,
		Content:     content,
		RootID:      rootID,
		ParentID:    parentID,
	}
	if err := a.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	members, err := a.store.ChatMembers(ctx, chat.ID)
	if err != nil {
		return nil, err
	}

	anyRecipientReached := false
	for _, memberID := range members {
		target, err := a.store.UserByID(ctx, memberID)
		if err != nil {
			continue
		}
		params := event.Message{
			SenderID:         sender.ID,
			ReceiverUsername: target.Username,
			MessageID:        msg.ID,
			ChatID:           chat.ID,
			ChatType:         chat.ChatType,
			MessageType:      msg.MessageType,
			Content:          msg.Content,
			RootID:           msg.RootID,
			ParentID:         msg.ParentID,
		}
		var env *event.Envelope
		if memberID == sender.ID {
			env = event.BuildMessageSyncEvent(params)
		} else {
			env = event.BuildMessageEvent(params)
		}
		delivered := a.registry.Push(memberID, env)
		if delivered && memberID != sender.ID {
			anyRecipientReached = true
		}
	}

	ack := event.BuildAckEvent(msg.ID, chat.ID, sender.Username, anyRecipientReached)
	a.registry.Push(sender.ID, ack)

	return msg, nil
}

func (a *API) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, "invalid request body")
		return
	}
	user := currentUser(r)
	ctx := r.Context()

	receiveIDType := r.URL.Query().Get("receive_id_type")
	if receiveIDType == "" {
		receiveIDType = "open_id"
	}

	var chat *store.Chat
	switch receiveIDType {
	case "open_id", "user_id":
		target, err := a.store.UserByID(ctx, req.ReceiveID)
		if errors.Is(err, store.ErrNotFound) {
			fail(w, "receiver not found")
			return
		}
		if err != nil {
			a.logger.Error("looking up receiver", "error", err)
			fail(w, "internal error")
			return
		}
		chat, err = a.store.FindOrCreateP2PChat(ctx, user.ID, target.ID)
		if err != nil {
			a.logger.Error("resolving chat", "error", err)
			fail(w, "internal error")
			return
		}
	case "chat_id":
		var err error
		chat, err = a.store.ChatByID(ctx, req.ReceiveID)
		if errors.Is(err, store.ErrNotFound) {
			fail(w, "chat not found")
			return
		}
		if err != nil {
			a.logger.Error("looking up chat", "error", err)
			fail(w, "internal error")
			return
		}
	default:
		fail(w, "unsupported receive_id_type")
		return
	}

	msg, err := a.saveAndPush(ctx, user, chat, req.MsgType, req.Content, "", "")
	if err != nil {
		a.logger.Error("saving message", "error", err)
		fail(w, "internal error")
		return
	}
	ok(w, map[string]any{
		"message_id":  msg.ID,
		"chat_id":     msg.ChatID,
		"create_time": millisString(msg.CreatedAt),
	})
}

func (a *API) handleReplyMessage(w http.ResponseWriter, r *http.Request) {
	var req replyMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, "invalid request body")
		return
	}
	user := currentUser(r)
	ctx := r.Context()

	parent, err := a.store.MessageByID(ctx, chi.URLParam(r, "messageID"))
	if errors.Is(err, store.ErrNotFound) {
		fail(w, "parent message not found")
		return
	}
	if err != nil {
		a.logger.Error("looking up parent message", "error", err)
		fail(w, "internal error")
		return
	}
	chat, err := a.store.ChatByID(ctx, parent.ChatID)
	if err != nil {
		a.logger.Error("looking up chat", "error", err)
		fail(w, "internal error")
		return
	}

	rootID := parent.RootID
	if rootID == "" {
		rootID = parent.ID
	}
	msg, err := a.saveAndPush(ctx, user, chat, req.MsgType, req.Content, rootID, parent.ID)
	if err != nil {
		a.logger.Error("saving reply", "error", err)
		fail(w, "internal error")
		return
	}
	ok(w, map[string]any{
		"message_id":  msg.ID,
		"chat_id":     msg.ChatID,
		"create_time": millisString(msg.CreatedAt),
	})
}

func messageItem(m *store.Message) map[string]any {
	return map[string]any{
		"message_id": m.ID,
		"chat_id":    m.ChatID,
		"msg_type":   m.MessageType,
		"body":       map[string]any{"content": m.Content},
		"sender": map[string]any{
			"id":          m.SenderID,
			"id_type":     "open_id",
			"sender_type": "user",
			"tenant_key":  event.TenantKey,
		},
		"root_id":     m.RootID,
		"parent_id":   m.ParentID,
		"create_time": millisString(m.CreatedAt),
	}
}

func (a *API) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := a.store.MessageByID(r.Context(), chi.URLParam(r, "messageID"))
	if errors.Is(err, store.ErrNotFound) {
		fail(w, "message not found")
		return
	}
	if err != nil {
		a.logger.Error("looking up message", "error", err)
		fail(w, "internal error")
		return
	}
	ok(w, map[string]any{"items": []any{messageItem(msg)}})
}

func (a *API) handlePatchMessage(w http.ResponseWriter, r *http.Request) {
	var req patchMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, "invalid request body")
		return
	}
	user := currentUser(r)
	ctx := r.Context()

	msg, err := a.store.MessageByID(ctx, chi.URLParam(r, "messageID"))
	if errors.Is(err, store.ErrNotFound) {
		fail(w, "message not found")
		return
	}
	if err != nil {
		a.logger.Error("looking up message", "error", err)
		fail(w, "internal error")
		return
	}
	if msg.SenderID != user.ID {
		fail(w, "no permission to edit this message")
		return
	}
	if err := a.store.UpdateMessage(ctx, msg.ID, req.MsgType, req.Content); err != nil {
		a.logger.Error("updating message", "error", err)
		fail(w, "internal error")
		return
	}
	msg.MessageType = req.MsgType
	msg.Content = req.Content

	// Notify every member, sender included, that the message changed.
	if chat, err := a.store.ChatByID(ctx, msg.ChatID); err == nil {
		members, err := a.store.ChatMembers(ctx, chat.ID)
		if err == nil {
			for _, memberID := range members {
				target, err := a.store.UserByID(ctx, memberID)
				if err != nil {
					continue
				}
				env := event.BuildMessageUpdateEvent(event.Message{
					SenderID:         user.ID,
					ReceiverUsername: target.Username,
					MessageID:        msg.ID,
					ChatID:           chat.ID,
					ChatType:         chat.ChatType,
					MessageType:      msg.MessageType,
					Content:          msg.Content,
				})
				a.registry.Push(memberID, env)
			}
		}
	}

	ok(w, map[string]any{
		"message_id":  msg.ID,
		"chat_id":     msg.ChatID,
		"msg_type":    msg.MessageType,
		"body":        map[string]any{"content": msg.Content},
		"update_time": millisString(msg.CreatedAt),
	})
}

func (a *API) handleListChatMessages(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	ctx := r.Context()
	chatID := chi.URLParam(r, "chatID")

	if _, err := a.store.ChatByID(ctx, chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(w, "chat not found")
			return
		}
		a.logger.Error("looking up chat", "error", err)
		fail(w, "internal error")
		return
	}
	isMember, err := a.store.IsChatMember(ctx, chatID, user.ID)
	if err != nil {
		a.logger.Error("checking membership", "error", err)
		fail(w, "internal error")
		return
	}
	if !isMember {
		fail(w, "not a member of this chat")
		return
	}

	pageSize := 100
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 500 {
			pageSize = n
		}
	}
	var since int64
	if v := r.URL.Query().Get("start_time"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = n
		}
	}

	messages, err := a.store.MessagesInChat(ctx, chatID, pageSize, since)
	if err != nil {
		a.logger.Error("listing messages", "error", err)
		fail(w, "internal error")
		return
	}
	items := make([]any, 0, len(messages))
	for _, m := range messages {
		items = append(items, messageItem(m))
	}
	ok(w, map[string]any{"items": items})
}
