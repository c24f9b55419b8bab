package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shahedoge/cofly/internal/store"
	"github.com/shahedoge/cofly/pkg/auth"
	"github.com/shahedoge/cofly/pkg/server"
)

// API holds the dependencies of the HTTP handlers.
type API struct {
	store    *store.Store
	blobs    store.BlobStore
	tokens   *auth.Tokens
	policy   *auth.RegistrationPolicy
	registry *server.Registry
	gateway  *server.Gateway
	config   *server.Config
	logger   *slog.Logger
}

// New creates the API over its collaborators.
func New(
	st *store.Store,
	blobs store.BlobStore,
	tokens *auth.Tokens,
	policy *auth.RegistrationPolicy,
	registry *server.Registry,
	gateway *server.Gateway,
	config *server.Config,
	logger *slog.Logger,
) *API {
	if config == nil {
		config = server.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		store:    st,
		blobs:    blobs,
		tokens:   tokens,
		policy:   policy,
		registry: registry,
		gateway:  gateway,
		config:   config,
		logger:   logger.With("component", "api"),
	}
}

// Routes registers every endpoint on r. Middleware (metrics, tracing)
// is the caller's concern so tests can mount a bare router.
func (a *API) Routes(r chi.Router) {
	r.Get("/", a.handleRoot)

	r.Post("/cofly/register", a.handleRegister)
	r.Post("/open-apis/auth/v3/tenant_access_token/internal", a.handleTenantAccessToken)

	r.Get("/cofly/online/{userID}", a.handleCheckOnline)
	r.Get("/cofly/users/{username}", a.handleLookupUserByUsername)
	r.Post("/callback/ws/endpoint", a.handleWSEndpoint)
	r.Get("/ws", a.gateway.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(a.requireUser)

		r.Get("/open-apis/contact/v3/users/{userID}", a.handleGetUserInfo)
		r.Get("/open-apis/bot/v3/info", a.handleBotInfo)

		r.Post("/open-apis/im/v1/messages", a.handleSendMessage)
		r.Post("/open-apis/im/v1/messages/{messageID}/reply", a.handleReplyMessage)
		r.Get("/open-apis/im/v1/messages/{messageID}", a.handleGetMessage)
		r.Patch("/open-apis/im/v1/messages/{messageID}", a.handlePatchMessage)
		r.Get("/open-apis/im/v1/chats/{chatID}/messages", a.handleListChatMessages)
		r.Get("/open-apis/im/v1/chats", a.handleListChats)

		r.Post("/open-apis/im/v1/images", a.handleUploadImage)
		r.Get("/open-apis/im/v1/images/{imageKey}", a.handleDownloadImage)
		r.Post("/open-apis/im/v1/files", a.handleUploadFile)
		r.Get("/open-apis/im/v1/messages/{messageID}/resources/{fileKey}", a.handleDownloadResource)

		r.Post("/open-apis/im/v1/messages/{messageID}/reactions", a.handleAddReaction)
		r.Delete("/open-apis/im/v1/messages/{messageID}/reactions/{reactionID}", a.handleDeleteReaction)
		r.Get("/open-apis/im/v1/messages/{messageID}/reactions", a.handleListReactions)
	})
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"code": 0, "msg": "cofly is running"})
}
