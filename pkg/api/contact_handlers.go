package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shahedoge/cofly/internal/store"
)

func userDict(u *store.User) map[string]any {
	departmentIDs := []string{}
	if u.Department != "" {
		departmentIDs = append(departmentIDs, u.Department)
	}
	return map[string]any{
		"open_id":        u.ID,
		"user_id":        u.ID,
		"union_id":       u.ID,
		"name":           u.DisplayName,
		"en_name":        u.Username,
		"nickname":       u.DisplayName,
		"email":          u.Email,
		"mobile":         u.Mobile,
		"department_ids": departmentIDs,
	}
}

// handleGetUserInfo serves the platform-shaped lookup by id. The
// user_id_type query parameter is accepted for SDK compatibility; here
// open_id and user_id are the same value.
func (a *API) handleGetUserInfo(w http.ResponseWriter, r *http.Request) {
	target, err := a.store.UserByID(r.Context(), chi.URLParam(r, "userID"))
	if errors.Is(err, store.ErrNotFound) {
		fail(w, "user not found")
		return
	}
	if err != nil {
		a.logger.Error("looking up user", "error", err)
		fail(w, "internal error")
		return
	}
	ok(w, map[string]any{"user": userDict(target)})
}

// handleLookupUserByUsername is the emulator-specific lookup by
// username, used by test tooling to discover a peer's id.
func (a *API) handleLookupUserByUsername(w http.ResponseWriter, r *http.Request) {
	target, err := a.store.UserByUsername(r.Context(), chi.URLParam(r, "username"))
	if errors.Is(err, store.ErrNotFound) {
		fail(w, "user not found")
		return
	}
	if err != nil {
		a.logger.Error("looking up user", "error", err)
		fail(w, "internal error")
		return
	}
	ok(w, map[string]any{"user": userDict(target)})
}

// handleBotInfo returns the caller's own id, which SDKs fetch to learn
// who they are.
func (a *API) handleBotInfo(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"code": 0,
		"msg":  "ok",
		"bot": map[string]any{
			"bot_name": user.DisplayName,
			"open_id":  user.ID,
		},
	})
}
