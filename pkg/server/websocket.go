package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Close reasons sent on rejected handshakes. These strings are machine
// readable and part of the public contract.
const (
	CloseReasonMissingToken  = "missing token"
	CloseReasonInvalidToken  = "invalid token"
	CloseReasonNotRegistered = "user not registered"
	CloseReasonNotFound      = "user not found"
)

// closeCodeRejected is the application close code used for every
// handshake rejection.
const closeCodeRejected = 4001

// IdentityHint is what a verified credential asserts about its bearer.
type IdentityHint struct {
	UserID   string
	Username string
}

// CredentialVerifier validates a bearer token and extracts its claims.
// Implemented by the auth subsystem.
type CredentialVerifier interface {
	Verify(token string) (IdentityHint, error)
}

// IdentityResolver resolves a verified hint to a registered identity.
// The resolver may materialize a new identity for a hint that carries a
// displayable name; whether that is allowed is registration policy owned
// by the resolver, not by this package.
type IdentityResolver interface {
	Resolve(ctx context.Context, hint IdentityHint) (identity string, err error)
}

// Resolver errors the gateway maps to close reasons.
var (
	ErrNotRegistered = errors.New("server: user not registered")
	ErrUserNotFound  = errors.New("server: user not found")
)

// Gateway upgrades inbound connection requests, authenticates them, and
// runs the per-connection receive loop that drives the registry.
//
// Per-connection lifecycle: Pending -> Authenticating -> Connected or
// Rejected; Connected -> Disconnected. However the receive loop ends
// (peer close, transport error, malformed frame), Disconnect runs exactly
// once for the connection.
type Gateway struct {
	registry *Registry
	verifier CredentialVerifier
	resolver IdentityResolver
	upgrader websocket.Upgrader
	config   *Config
	logger   *slog.Logger
	metrics  *Metrics
}

// NewGateway creates the WebSocket gateway. metrics may be nil.
func NewGateway(registry *Registry, verifier CredentialVerifier, resolver IdentityResolver, config *Config, logger *slog.Logger, metrics *Metrics) *Gateway {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		registry: registry,
		verifier: verifier,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			// The channel is token-authenticated, not cookie-authenticated,
			// so cross-origin upgrades carry no ambient authority.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		config:  config,
		logger:  logger.With("component", "gateway"),
		metrics: metrics,
	}
}

// bearerToken extracts the credential from the upgrade request: the
// Authorization header when present, else the token query parameter
// (the primary path, since some clients cannot set custom headers on a
// raw upgrade).
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// ServeHTTP handles one connection for its whole lifetime.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(g.config.MaxMessageSize)

	if token == "" {
		g.reject(conn, CloseReasonMissingToken)
		return
	}

	hint, err := g.verifier.Verify(token)
	if err != nil {
		g.logger.Warn("handshake rejected: bad credential", "error", err)
		g.reject(conn, CloseReasonInvalidToken)
		return
	}

	identity, err := g.resolver.Resolve(r.Context(), hint)
	if err != nil {
		reason := CloseReasonNotFound
		if errors.Is(err, ErrNotRegistered) {
			reason = CloseReasonNotRegistered
		}
		g.logger.Warn("handshake rejected", "reason", reason, "error", err)
		g.reject(conn, reason)
		return
	}

	c := newWSConn(conn, g.config.WriteTimeout)
	g.registry.Connect(identity, c)
	defer func() {
		g.registry.Disconnect(identity, c)
		conn.Close()
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				g.logger.Warn("read error", "identity", identity, "error", err)
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		if err := g.registry.HandleFrame(identity, c, data); err != nil {
			// Malformed bytes leave the stream unframeable; close rather
			// than attempt resynchronization.
			g.logger.Warn("frame decode error, closing connection",
				"identity", identity, "error", err)
			return
		}
	}
}

// reject closes a never-connected handshake with a machine-readable
// reason.
func (g *Gateway) reject(conn *websocket.Conn, reason string) {
	g.metrics.recordReject(reason)
	deadline := time.Now().Add(g.config.WriteTimeout)
	msg := websocket.FormatCloseMessage(closeCodeRejected, reason)
	conn.WriteControl(websocket.CloseMessage, msg, deadline)
	conn.Close()
}
