// Package auth provides credential handling for the emulator: bcrypt
// password hashing, signed bearer tokens, and the registration policy
// that decides whether unknown identities may be materialized on first
// contact.
//
// File structure:
//   - password.go: bcrypt hashing and verification
//   - token.go: HS256 bearer tokens carrying user id and username
//   - policy.go: registration gating
//   - verifier.go: adapter feeding token claims to the connection gateway
package auth
