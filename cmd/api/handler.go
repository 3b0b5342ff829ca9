package api

import (
	"github.com/gin-gonic/gin"

	digestdelivery "github.com/inboxsherpa/inboxsherpa/internal/digest/delivery"
	digestusecase "github.com/inboxsherpa/inboxsherpa/internal/digest/usecase"
	identitydelivery "github.com/inboxsherpa/inboxsherpa/internal/identity/delivery"
	identityusecase "github.com/inboxsherpa/inboxsherpa/internal/identity/usecase"
	mailsync "github.com/inboxsherpa/inboxsherpa/internal/sync"
	"github.com/inboxsherpa/inboxsherpa/pkg/config"
)

// Handler composes the HTTP surface of the service
type Handler struct {
	identityUsecase identityusecase.IdentityUsecase
	config          *config.Config
	identityHandler *identitydelivery.IdentityHandler
	digestHandler   *digestdelivery.DigestHandler
	syncHandler     *mailsync.SyncHandler
}

// NewHandler wires the delivery layer. syncService is nil when push sync
// is not configured; the watch endpoints then report 503.
func NewHandler(
	identityUc identityusecase.IdentityUsecase,
	importer digestusecase.ImporterUsecase,
	clusters digestusecase.ClusterUsecase,
	suggestions digestusecase.SuggestionUsecase,
	syncService *mailsync.Service,
	cfg *config.Config,
) *Handler {
	return &Handler{
		identityUsecase: identityUc,
		config:          cfg,
		identityHandler: identitydelivery.NewIdentityHandler(identityUc),
		digestHandler:   digestdelivery.NewDigestHandler(importer, clusters, suggestions, cfg),
		syncHandler:     mailsync.NewSyncHandler(syncService),
	}
}

// Start configures gin and blocks serving HTTP
func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.identityUsecase, h.identityHandler, h.digestHandler, h.syncHandler)

	return r.Run(addr)
}
