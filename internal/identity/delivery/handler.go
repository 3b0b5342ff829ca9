package delivery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	identitydto "github.com/inboxsherpa/inboxsherpa/internal/identity/dto"
	"github.com/inboxsherpa/inboxsherpa/internal/identity/usecase"
)

// IdentityHandler handles account and auth HTTP requests
type IdentityHandler struct {
	identityUsecase usecase.IdentityUsecase
}

// NewIdentityHandler creates a new IdentityHandler
func NewIdentityHandler(identityUsecase usecase.IdentityUsecase) *IdentityHandler {
	return &IdentityHandler{
		identityUsecase: identityUsecase,
	}
}

// Register creates a new account bound to a mailbox
// POST /api/auth/register
func (h *IdentityHandler) Register(c *gin.Context) {
	var req identitydto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, err := h.identityUsecase.Register(&req)
	if err != nil {
		var verr *digestdomain.ValidationError
		switch {
		case errors.Is(err, digestdomain.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "email or mailbox already registered"})
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, tokens)
}

// Login authenticates with email and password
// POST /api/auth/login
func (h *IdentityHandler) Login(c *gin.Context) {
	var req identitydto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, err := h.identityUsecase.Login(&req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// GoogleSignIn authenticates with a Google ID token
// POST /api/auth/google
func (h *IdentityHandler) GoogleSignIn(c *gin.Context) {
	var req identitydto.GoogleSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, err := h.identityUsecase.GoogleSignIn(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// RefreshToken exchanges a refresh token for a new token pair
// POST /api/auth/refresh
func (h *IdentityHandler) RefreshToken(c *gin.Context) {
	var req identitydto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, err := h.identityUsecase.RefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Logout revokes a refresh token
// POST /api/auth/logout
func (h *IdentityHandler) Logout(c *gin.Context) {
	var req identitydto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.identityUsecase.Logout(req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// GetProfile returns the authenticated user
// GET /api/users/me
func (h *IdentityHandler) GetProfile(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.identityUsecase.GetProfile(userID)
	if err != nil {
		if errors.Is(err, digestdomain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile changes the digest timezone
// PATCH /api/users/me
func (h *IdentityHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetString("userID")

	var req identitydto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.identityUsecase.UpdateTimezone(userID, req.Timezone)
	if err != nil {
		var verr *digestdomain.ValidationError
		switch {
		case errors.Is(err, digestdomain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteAccount removes the user and all owned data
// DELETE /api/users/me
func (h *IdentityHandler) DeleteAccount(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.identityUsecase.DeleteAccount(userID); err != nil {
		if errors.Is(err, digestdomain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
