package domain

import "time"

// User is one app identity, bound 1:1 to exactly one upstream mailbox
// account. All threads, messages, clusters and suggested actions belong to
// exactly one user and are removed with it.
type User struct {
	ID           string `json:"id" gorm:"primaryKey"`
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-"` // Empty for Google-only sign-in

	// One app user == one gmail account
	GmailAccountEmail string `json:"gmail_account_email" gorm:"uniqueIndex;not null"`

	// OAuth credentials for the bound mailbox, set once the grant completes
	GmailAccessToken  string `json:"-"`
	GmailRefreshToken string `json:"-"`

	// LastSyncCursor is the incremental-sync start point (Gmail historyId).
	// Empty until the first full sync completes; only ever moves forward.
	LastSyncCursor string `json:"last_sync_cursor,omitempty"`

	// Timezone is the IANA zone digest day windows are computed in
	Timezone string `json:"timezone" gorm:"default:UTC;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

type RefreshToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
}
