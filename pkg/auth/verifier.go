package auth

import "github.com/shahedoge/cofly/pkg/server"

// Verifier adapts Tokens to the gateway's credential verifier.
type Verifier struct {
	tokens *Tokens
}

// NewVerifier wraps tokens for use by the connection gateway.
func NewVerifier(tokens *Tokens) *Verifier {
	return &Verifier{tokens: tokens}
}

// Verify validates the token and returns its identity hint.
func (v *Verifier) Verify(token string) (server.IdentityHint, error) {
	claims, err := v.tokens.Verify(token)
	if err != nil {
		return server.IdentityHint{}, err
	}
	return server.IdentityHint{UserID: claims.UserID, Username: claims.Username}, nil
}
