package usecase

import (
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	"github.com/inboxsherpa/inboxsherpa/internal/digest/repository"
)

// threadRegistry implements ThreadRegistry on top of the thread repository
type threadRegistry struct {
	threadRepo repository.ThreadRepository
}

// NewThreadRegistry creates a new ThreadRegistry
func NewThreadRegistry(threadRepo repository.ThreadRepository) ThreadRegistry {
	return &threadRegistry{threadRepo: threadRepo}
}

func (r *threadRegistry) ResolveOrCreateThread(userID string, channel digestdomain.Channel, externalID, subjectHint string) (*digestdomain.Thread, error) {
	return r.threadRepo.FirstOrCreate(userID, channel, externalID, subjectHint)
}

func (r *threadRegistry) Touch(threadID string, messageTimestamp time.Time) error {
	return r.threadRepo.Touch(threadID, messageTimestamp)
}
