package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shahedoge/cofly/internal/store"
)

type userContextKey struct{}

// currentUser returns the authenticated user placed by requireUser.
func currentUser(r *http.Request) *store.User {
	u, _ := r.Context().Value(userContextKey{}).(*store.User)
	return u
}

// requireUser authenticates the request via its bearer token. A token
// whose user id is unknown falls back to the username claim: the id may
// predate a database rebuild, or the token may be cached from an old
// deployment. Unknown usernames are materialized under open
// registration.
func (a *API) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(w, "Missing Authorization header")
			return
		}
		claims, err := a.tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			unauthorized(w, "Invalid token")
			return
		}

		ctx := r.Context()
		user, err := a.store.UserByID(ctx, claims.UserID)
		if errors.Is(err, store.ErrNotFound) && claims.Username != "" {
			user, err = a.store.UserByUsername(ctx, claims.Username)
			if errors.Is(err, store.ErrNotFound) {
				if !a.policy.Open() {
					unauthorized(w, "User not found and registration is restricted")
					return
				}
				user, err = a.store.EnsureUser(ctx, claims.Username)
			}
		}
		if err != nil || user == nil {
			unauthorized(w, "User not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userContextKey{}, user)))
	})
}
