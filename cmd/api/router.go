package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	digestdelivery "github.com/inboxsherpa/inboxsherpa/internal/digest/delivery"
	identitydelivery "github.com/inboxsherpa/inboxsherpa/internal/identity/delivery"
	identityusecase "github.com/inboxsherpa/inboxsherpa/internal/identity/usecase"
	mailsync "github.com/inboxsherpa/inboxsherpa/internal/sync"
)

// SetupRoutes registers every API endpoint
func SetupRoutes(r *gin.Engine, identityUc identityusecase.IdentityUsecase, identityHandler *identitydelivery.IdentityHandler, digestHandler *digestdelivery.DigestHandler, syncHandler *mailsync.SyncHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", identityHandler.Register)
			auth.POST("/login", identityHandler.Login)
			auth.POST("/google", identityHandler.GoogleSignIn)
			auth.POST("/refresh", identityHandler.RefreshToken)
			auth.POST("/logout", identityHandler.Logout)
		}

		// Account routes (protected)
		users := api.Group("/users")
		users.Use(identitydelivery.AuthMiddleware(identityUc))
		{
			users.GET("/me", identityHandler.GetProfile)
			users.PATCH("/me", identityHandler.UpdateProfile)
			users.DELETE("/me", identityHandler.DeleteAccount)
		}

		// Import routes (protected)
		importGroup := api.Group("/import")
		importGroup.Use(identitydelivery.AuthMiddleware(identityUc))
		{
			importGroup.POST("/messages", digestHandler.ImportMessages)
		}

		// Message routes (protected)
		messages := api.Group("/messages")
		messages.Use(identitydelivery.AuthMiddleware(identityUc))
		{
			messages.GET("", digestHandler.GetMessages)
		}

		// Digest routes (protected)
		digest := api.Group("/digest")
		digest.Use(identitydelivery.AuthMiddleware(identityUc))
		{
			digest.POST("/:date/build", digestHandler.BuildDigest)
			digest.GET("/:date", digestHandler.GetDigest)
		}

		// Cluster routes (protected)
		clusters := api.Group("/clusters")
		clusters.Use(identitydelivery.AuthMiddleware(identityUc))
		{
			clusters.GET("/:id/messages", digestHandler.GetClusterMessages)
			clusters.POST("/:id/actions", digestHandler.ProposeActions)
			clusters.GET("/:id/actions", digestHandler.ListActions)
		}

		// Action routes (protected)
		actions := api.Group("/actions")
		actions.Use(identitydelivery.AuthMiddleware(identityUc))
		{
			actions.POST("/:id/decide", digestHandler.DecideAction)
		}

		// Mailbox push registration (protected)
		syncGroup := api.Group("/sync")
		syncGroup.Use(identitydelivery.AuthMiddleware(identityUc))
		{
			syncGroup.POST("/watch", syncHandler.WatchMailbox)
			syncGroup.DELETE("/watch", syncHandler.UnwatchMailbox)
		}
	}
}
