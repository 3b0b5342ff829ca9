package repository

import (
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	// FindByExternalKey looks a message up by its (user, channel,
	// externalId) idempotency key. Returns (nil, nil) when absent.
	FindByExternalKey(userID string, channel digestdomain.Channel, externalID string) (*digestdomain.Message, error)

	// FindByID finds a message by ID. Returns (nil, nil) when absent.
	FindByID(id string) (*digestdomain.Message, error)

	// Create inserts a new message. Returns domain.ErrConflict when the
	// idempotency key is already taken (concurrent importer won the race).
	Create(message *digestdomain.Message) error

	// Update saves mutable fields of an existing message
	Update(message *digestdomain.Message) error

	// FindUnclusteredInWindow selects the messages eligible for a clustering
	// pass: timestamp in [start, end), no cluster assigned, not deleted.
	FindUnclusteredInWindow(userID string, start, end time.Time) ([]*digestdomain.Message, error)

	// FindByCluster returns the messages assigned to a cluster
	FindByCluster(clusterID string) ([]*digestdomain.Message, error)

	// FindByUser lists a user's messages with an optional status filter
	FindByUser(userID string, status *digestdomain.MessageStatus, limit, offset int) ([]*digestdomain.Message, int64, error)

	// FindOrphanedByThread returns messages that recorded a thread external
	// id at import time but could not be linked to a thread yet
	FindOrphanedByThread(userID string) ([]*digestdomain.Message, error)

	// LinkThread backfills the thread reference on a message
	LinkThread(messageID, threadID string) error
}
