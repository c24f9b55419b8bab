package store

import (
	"context"

	"github.com/shahedoge/cofly/pkg/auth"
	"github.com/shahedoge/cofly/pkg/server"
)

// Resolver maps verified token claims to a stored user. It implements
// the gateway's identity resolution: look up by id first, fall back to
// username (the id may predate a database rebuild), and materialize an
// unknown username when registration is open.
type Resolver struct {
	store  *Store
	policy *auth.RegistrationPolicy
}

// NewResolver creates a resolver over s gated by policy.
func NewResolver(s *Store, policy *auth.RegistrationPolicy) *Resolver {
	return &Resolver{store: s, policy: policy}
}

// Resolve returns the user id for the hinted identity.
func (r *Resolver) Resolve(ctx context.Context, hint server.IdentityHint) (string, error) {
	u, err := r.store.UserByID(ctx, hint.UserID)
	if err == nil {
		return u.ID, nil
	}
	if err != ErrNotFound {
		return "", err
	}
	if hint.Username == "" {
		return "", server.ErrUserNotFound
	}

	u, err = r.store.UserByUsername(ctx, hint.Username)
	if err == nil {
		return u.ID, nil
	}
	if err != ErrNotFound {
		return "", err
	}
	if !r.policy.Open() {
		return "", server.ErrNotRegistered
	}
	u, err = r.store.EnsureUser(ctx, hint.Username)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}
