package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shahedoge/cofly/internal/store"
)

type addReactionRequest struct {
	ReactionType struct {
		EmojiType string `json:"emoji_type"`
	} `json:"reaction_type"`
}

func reactionItem(r *store.Reaction) map[string]any {
	return map[string]any{
		"reaction_id":   r.ID,
		"reaction_type": map[string]any{"emoji_type": r.EmojiType},
		"operator_type": "user",
		"user_id":       r.UserID,
	}
}

func (a *API) handleAddReaction(w http.ResponseWriter, r *http.Request) {
	var req addReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, "invalid request body")
		return
	}
	user := currentUser(r)
	ctx := r.Context()
	messageID := chi.URLParam(r, "messageID")

	if _, err := a.store.MessageByID(ctx, messageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(w, "message not found")
			return
		}
		a.logger.Error("looking up message", "error", err)
		fail(w, "internal error")
		return
	}
	reaction, err := a.store.AddReaction(ctx, messageID, user.ID, req.ReactionType.EmojiType)
	if err != nil {
		a.logger.Error("adding reaction", "error", err)
		fail(w, "internal error")
		return
	}
	ok(w, reactionItem(reaction))
}

func (a *API) handleDeleteReaction(w http.ResponseWriter, r *http.Request) {
	err := a.store.DeleteReaction(r.Context(),
		chi.URLParam(r, "messageID"), chi.URLParam(r, "reactionID"))
	if errors.Is(err, store.ErrNotFound) {
		fail(w, "reaction not found")
		return
	}
	if err != nil {
		a.logger.Error("deleting reaction", "error", err)
		fail(w, "internal error")
		return
	}
	ok(w, nil)
}

func (a *API) handleListReactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	messageID := chi.URLParam(r, "messageID")

	if _, err := a.store.MessageByID(ctx, messageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(w, "message not found")
			return
		}
		a.logger.Error("looking up message", "error", err)
		fail(w, "internal error")
		return
	}

	pageSize := 50
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}
	reactions, err := a.store.ReactionsForMessage(ctx, messageID, pageSize)
	if err != nil {
		a.logger.Error("listing reactions", "error", err)
		fail(w, "internal error")
		return
	}
	items := make([]any, 0, len(reactions))
	for _, reaction := range reactions {
		items = append(items, reactionItem(reaction))
	}
	ok(w, map[string]any{
		"items":      items,
		"has_more":   false,
		"page_token": "",
	})
}
