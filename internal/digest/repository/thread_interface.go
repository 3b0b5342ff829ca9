package repository

import (
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// ThreadRepository defines the interface for thread data access
type ThreadRepository interface {
	// FindByExternalKey looks a thread up by its (user, channel, externalId)
	// uniqueness key. Returns (nil, nil) when absent.
	FindByExternalKey(userID string, channel digestdomain.Channel, externalID string) (*digestdomain.Thread, error)

	// FindByID finds a thread by ID. Returns (nil, nil) when absent.
	FindByID(id string) (*digestdomain.Thread, error)

	// FirstOrCreate resolves the thread for the key, creating it with the
	// given subject hint on miss. Safe against concurrent importers.
	FirstOrCreate(userID string, channel digestdomain.Channel, externalID, subjectHint string) (*digestdomain.Thread, error)

	// Touch advances last_message_at to max(current, messageTimestamp).
	// Out-of-order deliveries never move it backwards.
	Touch(threadID string, messageTimestamp time.Time) error

	// Delete removes a thread and detaches (does not delete) its messages
	Delete(id string) error
}
