package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"

	identitydomain "github.com/inboxsherpa/inboxsherpa/internal/identity/domain"
)

// WatchRequest carries the OAuth grant for the user's bound mailbox.
// Google sign-in only proves identity; reading the mailbox needs a
// separate authorization-code grant exchanged by the client.
type WatchRequest struct {
	AccessToken  string `json:"access_token" binding:"required"`
	RefreshToken string `json:"refresh_token"`
}

// SyncHandler exposes mailbox push registration. service is nil when push
// sync is not configured.
type SyncHandler struct {
	service *Service
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service *Service) *SyncHandler {
	return &SyncHandler{service: service}
}

// WatchMailbox registers the authenticated user's mailbox for push
// notifications and primes the sync cursor
// POST /api/sync/watch
func (h *SyncHandler) WatchMailbox(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push sync is not configured"})
		return
	}

	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := c.MustGet("user").(*identitydomain.User)
	if err := h.service.EnablePush(c.Request.Context(), user, req.AccessToken, req.RefreshToken); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to register mailbox watch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "mailbox watch registered"})
}

// UnwatchMailbox stops push notifications for the authenticated user
// DELETE /api/sync/watch
func (h *SyncHandler) UnwatchMailbox(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push sync is not configured"})
		return
	}

	user := c.MustGet("user").(*identitydomain.User)
	if err := h.service.DisablePush(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to stop mailbox watch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "mailbox watch stopped"})
}
