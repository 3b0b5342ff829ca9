package repository

import (
	identitydomain "github.com/inboxsherpa/inboxsherpa/internal/identity/domain"
)

// UserRepository defines the interface for user identity data access
type UserRepository interface {
	// Create persists a new user. Fails with domain.ErrConflict if either
	// the app email or the mailbox email is already bound.
	Create(user *identitydomain.User) error

	// FindByID finds a user by ID. Returns (nil, nil) when absent.
	FindByID(id string) (*identitydomain.User, error)

	// FindByEmail finds a user by app email. Returns (nil, nil) when absent.
	FindByEmail(email string) (*identitydomain.User, error)

	// FindByGmailAccount finds a user by bound mailbox email
	FindByGmailAccount(email string) (*identitydomain.User, error)

	// FindAll returns every user (used by the digest scheduler)
	FindAll() ([]*identitydomain.User, error)

	// Update updates mutable user fields
	Update(user *identitydomain.User) error

	// Delete removes the user and cascades to all owned threads, messages,
	// clusters and suggested actions
	Delete(id string) error

	// GetSyncCursor returns the stored incremental-sync cursor, empty if unset
	GetSyncCursor(userID string) (string, error)

	// AdvanceSyncCursor moves the sync cursor forward. A cursor older than
	// the stored one is rejected as a no-op and logged.
	AdvanceSyncCursor(userID, newCursor string) error

	// Refresh token storage for the auth layer
	SaveRefreshToken(token *identitydomain.RefreshToken) error
	FindRefreshToken(token string) (*identitydomain.RefreshToken, error)
	DeleteRefreshToken(token string) error
}
