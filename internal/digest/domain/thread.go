package domain

import "time"

// Thread represents a deduplicated conversation thread per user+channel.
// The (UserID, Channel, ExternalID) triple is the uniqueness key.
type Thread struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	UserID        string     `json:"user_id" gorm:"uniqueIndex:idx_thread_user_channel_external;index:idx_thread_user_channel;not null"`
	Channel       Channel    `json:"channel" gorm:"uniqueIndex:idx_thread_user_channel_external;index:idx_thread_user_channel;not null"`
	ExternalID    string     `json:"external_id" gorm:"uniqueIndex:idx_thread_user_channel_external;not null"` // Provider threadId
	Subject       string     `json:"subject,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"` // Max timestamp of member messages, never regresses
	CreatedAt     time.Time  `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Thread) TableName() string {
	return "threads"
}
