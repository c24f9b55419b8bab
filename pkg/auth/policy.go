package auth

import "crypto/subtle"

// RegistrationPolicy decides whether new identities may be created.
// An empty configured token means open registration.
type RegistrationPolicy struct {
	token string
}

// NewRegistrationPolicy creates a policy gated by token.
func NewRegistrationPolicy(token string) *RegistrationPolicy {
	return &RegistrationPolicy{token: token}
}

// Open reports whether registration requires no token at all.
func (p *RegistrationPolicy) Open() bool {
	return p.token == ""
}

// Allows reports whether a registration attempt presenting the given
// token may proceed.
func (p *RegistrationPolicy) Allows(token string) bool {
	if p.Open() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(p.token), []byte(token)) == 1
}
