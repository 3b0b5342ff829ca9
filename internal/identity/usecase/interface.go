package usecase

import (
	identitydomain "github.com/inboxsherpa/inboxsherpa/internal/identity/domain"
	identitydto "github.com/inboxsherpa/inboxsherpa/internal/identity/dto"
)

// IdentityUsecase defines the contract for account lifecycle and auth
type IdentityUsecase interface {
	Register(req *identitydto.RegisterRequest) (*identitydto.TokenResponse, error)
	Login(req *identitydto.LoginRequest) (*identitydto.TokenResponse, error)
	GoogleSignIn(idToken string) (*identitydto.TokenResponse, error)
	RefreshToken(refreshToken string) (*identitydto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*identitydomain.User, error)

	GetProfile(userID string) (*identitydomain.User, error)
	UpdateTimezone(userID, timezone string) (*identitydomain.User, error)

	// DeleteAccount removes the user and everything it owns
	DeleteAccount(userID string) error
}
