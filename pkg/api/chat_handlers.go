package api

import "net/http"

func (a *API) handleListChats(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	chats, err := a.store.ChatsForUser(r.Context(), user.ID)
	if err != nil {
		a.logger.Error("listing chats", "error", err)
		fail(w, "internal error")
		return
	}
	items := make([]any, 0, len(chats))
	for _, chat := range chats {
		items = append(items, map[string]any{
			"chat_id":   chat.ID,
			"chat_type": chat.ChatType,
			"name":      chat.Name,
			"owner_id":  chat.OwnerID,
		})
	}
	ok(w, map[string]any{
		"items":      items,
		"has_more":   false,
		"page_token": "",
	})
}
