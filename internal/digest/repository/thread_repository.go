package repository

import (
	"errors"
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// threadRepository implements ThreadRepository using GORM
type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository creates a new GORM-based ThreadRepository
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) FindByExternalKey(userID string, channel digestdomain.Channel, externalID string) (*digestdomain.Thread, error) {
	var thread digestdomain.Thread
	err := r.db.Where("user_id = ? AND channel = ? AND external_id = ?", userID, channel, externalID).
		First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) FindByID(id string) (*digestdomain.Thread, error) {
	var thread digestdomain.Thread
	err := r.db.Where("id = ?", id).First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) FirstOrCreate(userID string, channel digestdomain.Channel, externalID, subjectHint string) (*digestdomain.Thread, error) {
	thread := digestdomain.Thread{
		ID:        uuid.New().String(),
		UserID:    userID,
		Channel:   channel,
		ExternalID: externalID,
		Subject:   subjectHint,
		CreatedAt: time.Now(),
	}
	err := r.db.Where("user_id = ? AND channel = ? AND external_id = ?", userID, channel, externalID).
		FirstOrCreate(&thread).Error
	if err != nil {
		// A concurrent importer may have inserted the same key between the
		// lookup and the insert; resolve to the winner's row.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.FindByExternalKey(userID, channel, externalID)
		}
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) Touch(threadID string, messageTimestamp time.Time) error {
	// Conditional update keeps last_message_at monotonic under concurrent
	// out-of-order imports
	return r.db.Model(&digestdomain.Thread{}).
		Where("id = ? AND (last_message_at IS NULL OR last_message_at < ?)", threadID, messageTimestamp).
		Update("last_message_at", messageTimestamp).Error
}

func (r *threadRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Messages survive their thread and keep thread_external_id for
		// later reconciliation
		if err := tx.Model(&digestdomain.Message{}).Where("thread_id = ?", id).
			Update("thread_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&digestdomain.Thread{}).Error
	})
}
