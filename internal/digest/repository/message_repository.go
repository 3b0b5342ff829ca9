package repository

import (
	"errors"
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// messageRepository implements MessageRepository using GORM
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new GORM-based MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) FindByExternalKey(userID string, channel digestdomain.Channel, externalID string) (*digestdomain.Message, error) {
	var message digestdomain.Message
	err := r.db.Where("user_id = ? AND channel = ? AND external_id = ?", userID, channel, externalID).
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) FindByID(id string) (*digestdomain.Message, error) {
	var message digestdomain.Message
	err := r.db.Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) Create(message *digestdomain.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = time.Now()
	message.UpdatedAt = time.Now()
	if err := r.db.Create(message).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return digestdomain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *messageRepository) Update(message *digestdomain.Message) error {
	message.UpdatedAt = time.Now()
	return r.db.Save(message).Error
}

func (r *messageRepository) FindUnclusteredInWindow(userID string, start, end time.Time) ([]*digestdomain.Message, error) {
	var messages []*digestdomain.Message
	err := r.db.
		Where("user_id = ? AND timestamp >= ? AND timestamp < ? AND cluster_id IS NULL AND status != ?",
			userID, start, end, digestdomain.MessageStatusDeleted).
		Order("timestamp ASC").
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) FindByCluster(clusterID string) ([]*digestdomain.Message, error) {
	var messages []*digestdomain.Message
	err := r.db.Where("cluster_id = ?", clusterID).Order("timestamp ASC").Find(&messages).Error
	return messages, err
}

func (r *messageRepository) FindByUser(userID string, status *digestdomain.MessageStatus, limit, offset int) ([]*digestdomain.Message, int64, error) {
	var messages []*digestdomain.Message
	var total int64

	query := r.db.Model(&digestdomain.Message{}).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&messages).Error
	return messages, total, err
}

func (r *messageRepository) FindOrphanedByThread(userID string) ([]*digestdomain.Message, error) {
	var messages []*digestdomain.Message
	err := r.db.
		Where("user_id = ? AND thread_id IS NULL AND thread_external_id != ''", userID).
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) LinkThread(messageID, threadID string) error {
	return r.db.Model(&digestdomain.Message{}).Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"thread_id":  threadID,
			"updated_at": time.Now(),
		}).Error
}
