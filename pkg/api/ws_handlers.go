package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shahedoge/cofly/internal/store"
	"github.com/shahedoge/cofly/pkg/auth"
	"github.com/shahedoge/cofly/pkg/protocol"
)

// handleCheckOnline reports whether a user currently holds a live
// connection.
func (a *API) handleCheckOnline(w http.ResponseWriter, r *http.Request) {
	online := a.registry.IsOnline(chi.URLParam(r, "userID"))
	writeJSON(w, http.StatusOK, map[string]bool{"online": online})
}

type wsEndpointRequest struct {
	AppID     string `json:"AppID"`
	AppSecret string `json:"AppSecret"`
	AppIDAlt  string `json:"app_id"`
	SecretAlt string `json:"app_secret"`
}

func (req *wsEndpointRequest) credentials() (string, string) {
	appID := req.AppID
	if appID == "" {
		appID = req.AppIDAlt
	}
	secret := req.AppSecret
	if secret == "" {
		secret = req.SecretAlt
	}
	return appID, secret
}

// wsScheme picks ws or wss. Behind a reverse proxy the request scheme
// is http even for TLS clients, so the forwarding headers win.
func wsScheme(r *http.Request) string {
	forwarded := strings.ToLower(r.Header.Get("X-Forwarded-Proto"))
	if forwarded == "" {
		forwarded = strings.ToLower(r.Header.Get("X-Forwarded-Ssl"))
	}
	if forwarded == "https" || forwarded == "on" {
		return "wss"
	}
	if r.TLS != nil {
		return "wss"
	}
	return "ws"
}

// handleWSEndpoint is the connection discovery endpoint: it hands the
// client the channel URL (token embedded) and the reconnect and
// keepalive parameters. SDK clients authenticate with AppID/AppSecret
// in the body; test clients may present a bearer token instead.
func (a *API) handleWSEndpoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	host := r.Host
	if host == "" {
		host = "localhost:8000"
	}

	var token string
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	if token == "" {
		var req wsEndpointRequest
		json.NewDecoder(r.Body).Decode(&req)
		appID, appSecret := req.credentials()
		if appID != "" {
			user, err := a.store.UserByUsername(ctx, appID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				if !a.policy.Open() {
					fail(w, "user not registered")
					return
				}
				hash := ""
				if appSecret != "" {
					hash, err = auth.HashPassword(appSecret)
					if err != nil {
						a.logger.Error("hashing password", "error", err)
						fail(w, "internal error")
						return
					}
				}
				user = &store.User{Username: appID, PasswordHash: hash, DisplayName: appID}
				if err := a.store.CreateUser(ctx, user); err != nil && !errors.Is(err, store.ErrUsernameTaken) {
					a.logger.Error("creating user", "error", err)
					fail(w, "internal error")
					return
				}
			case err != nil:
				a.logger.Error("looking up user", "error", err)
				fail(w, "internal error")
				return
			case user.PasswordHash == "" && appSecret != "":
				hash, hashErr := auth.HashPassword(appSecret)
				if hashErr == nil {
					a.store.SetPassword(ctx, user.ID, hash)
				}
			}
			issued, err := a.tokens.Issue(user.ID, user.Username)
			if err != nil {
				a.logger.Error("issuing token", "error", err)
				fail(w, "internal error")
				return
			}
			token = issued
		}
	}

	a.logger.Info("ws endpoint discovery", "host", host, "has_token", token != "")

	wsURL := wsScheme(r) + "://" + host + "/ws"
	if token != "" {
		wsURL += "?token=" + token
	}
	ok(w, map[string]any{
		"URL":          wsURL,
		"ClientConfig": protocol.DefaultClientConfig(),
	})
}
