package domain

import "time"

// Message is one ingested email message. The (UserID, Channel, ExternalID)
// triple is the idempotency key for imports: re-ingesting the same external
// id updates the existing row, never duplicates it.
type Message struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"uniqueIndex:idx_message_user_channel_external;index:idx_message_user_status;index:idx_message_user_timestamp;not null"`

	// ThreadID is null when the channel has no threading concept or the
	// thread could not be resolved at import time. ThreadExternalID is kept
	// either way so the link can be backfilled later.
	ThreadID         *string `json:"thread_id,omitempty" gorm:"index"`
	ThreadExternalID string  `json:"thread_external_id,omitempty"`

	// ClusterID stays null until a clustering pass assigns the message to a
	// digest cluster. Cleared again if that cluster is deleted.
	ClusterID *string `json:"cluster_id,omitempty" gorm:"index"`

	Channel    Channel `json:"channel" gorm:"uniqueIndex:idx_message_user_channel_external;not null"`
	ExternalID string  `json:"external_id" gorm:"uniqueIndex:idx_message_user_channel_external;not null"` // Provider messageId

	Timestamp time.Time `json:"timestamp" gorm:"index:idx_message_user_timestamp;not null"`
	Sender    string    `json:"sender" gorm:"not null"`
	Subject   string    `json:"subject" gorm:"not null"`
	Snippet   string    `json:"snippet,omitempty"`
	BodyText  string    `json:"body_text,omitempty" gorm:"type:text"`
	BodyHTML  string    `json:"body_html,omitempty" gorm:"type:text"`

	Labels StringArray `json:"labels,omitempty" gorm:"type:text"` // Provider labelIds

	// HistoryID orders redeliveries from the provider; a replay with an
	// older historyId is treated as a stale duplicate.
	HistoryID string `json:"history_id,omitempty"`

	Status MessageStatus `json:"status" gorm:"index:idx_message_user_status;default:inbox;not null"`

	RawPayload JSONMap `json:"raw_payload,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}
