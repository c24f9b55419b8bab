package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shahedoge/cofly/internal/store"
	"github.com/shahedoge/cofly/pkg/auth"
)

type registerRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	DisplayName       string `json:"display_name"`
	Email             string `json:"email"`
	Mobile            string `json:"mobile"`
	Department        string `json:"department"`
	RegistrationToken string `json:"registration_token"`
	OpenID            string `json:"open_id"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, "invalid request body")
		return
	}
	if !a.policy.Allows(req.RegistrationToken) {
		fail(w, "invalid registration token")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.logger.Error("hashing password", "error", err)
		fail(w, "internal error")
		return
	}
	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}
	user := &store.User{
		ID:           req.OpenID,
		Username:     req.Username,
		PasswordHash: hash,
		DisplayName:  displayName,
		Email:        req.Email,
		Mobile:       req.Mobile,
		Department:   req.Department,
	}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			fail(w, "username already exists")
			return
		}
		a.logger.Error("creating user", "error", err)
		fail(w, "internal error")
		return
	}
	ok(w, map[string]any{"user_id": user.ID})
}

type tokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

// tokenResponse is the platform-shaped token payload. The token rides
// at the top level, not inside data.
type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

func (a *API) handleTenantAccessToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, tokenResponse{Code: 1, Msg: "invalid request body"})
		return
	}
	ctx := r.Context()

	user, err := a.store.UserByUsername(ctx, req.AppID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if !a.policy.Open() {
			writeJSON(w, http.StatusOK, tokenResponse{Code: 1, Msg: "user not registered"})
			return
		}
		// The emulated platform assumes the app already exists; here it
		// is created on first token request for convenience.
		hash, hashErr := auth.HashPassword(req.AppSecret)
		if hashErr != nil {
			a.logger.Error("hashing password", "error", hashErr)
			writeJSON(w, http.StatusOK, tokenResponse{Code: 1, Msg: "internal error"})
			return
		}
		user = &store.User{Username: req.AppID, PasswordHash: hash, DisplayName: req.AppID}
		if err := a.store.CreateUser(ctx, user); err != nil && !errors.Is(err, store.ErrUsernameTaken) {
			a.logger.Error("creating user", "error", err)
			writeJSON(w, http.StatusOK, tokenResponse{Code: 1, Msg: "internal error"})
			return
		}
	case err != nil:
		a.logger.Error("looking up user", "error", err)
		writeJSON(w, http.StatusOK, tokenResponse{Code: 1, Msg: "internal error"})
		return
	case user.PasswordHash == "":
		// Auto-created earlier with no credential; adopt this one.
		hash, hashErr := auth.HashPassword(req.AppSecret)
		if hashErr != nil {
			a.logger.Error("hashing password", "error", hashErr)
			writeJSON(w, http.StatusOK, tokenResponse{Code: 1, Msg: "internal error"})
			return
		}
		if err := a.store.SetPassword(ctx, user.ID, hash); err != nil {
			a.logger.Error("setting password", "error", err)
			writeJSON(w, http.StatusOK, tokenResponse{Code: 1, Msg: "internal error"})
			return
		}
	case !auth.VerifyPassword(user.PasswordHash, req.AppSecret):
		writeJSON(w, http.StatusOK, tokenResponse{Code: 1, Msg: "invalid credentials"})
		return
	}

	token, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		a.logger.Error("issuing token", "error", err)
		writeJSON(w, http.StatusOK, tokenResponse{Code: 1, Msg: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		Code:              0,
		Msg:               "ok",
		TenantAccessToken: token,
		Expire:            int(a.tokens.TTL().Seconds()),
	})
}
