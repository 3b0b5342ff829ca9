package repository

import (
	"errors"
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// suggestionRepository implements SuggestionRepository using GORM
type suggestionRepository struct {
	db *gorm.DB
}

// NewSuggestionRepository creates a new GORM-based SuggestionRepository
func NewSuggestionRepository(db *gorm.DB) SuggestionRepository {
	return &suggestionRepository{db: db}
}

func (r *suggestionRepository) Create(action *digestdomain.SuggestedAction) error {
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.Status == "" {
		action.Status = digestdomain.SuggestionStatusProposed
	}
	action.CreatedAt = time.Now()
	return r.db.Create(action).Error
}

func (r *suggestionRepository) FindByID(id string) (*digestdomain.SuggestedAction, error) {
	var action digestdomain.SuggestedAction
	err := r.db.Where("id = ?", id).First(&action).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

func (r *suggestionRepository) FindByCluster(clusterID string) ([]*digestdomain.SuggestedAction, error) {
	var actions []*digestdomain.SuggestedAction
	err := r.db.Where("cluster_id = ?", clusterID).Order("created_at ASC").Find(&actions).Error
	return actions, err
}

func (r *suggestionRepository) Decide(actionID string, outcome digestdomain.SuggestionStatus, decidedAt time.Time) (*digestdomain.SuggestedAction, error) {
	// Single-row compare-and-set: the WHERE on status makes exactly one of
	// any set of concurrent deciders win
	result := r.db.Model(&digestdomain.SuggestedAction{}).
		Where("id = ? AND status = ?", actionID, digestdomain.SuggestionStatusProposed).
		Updates(map[string]interface{}{
			"status":     outcome,
			"decided_at": decidedAt,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish an unknown action from one already decided
		existing, err := r.FindByID(actionID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, digestdomain.ErrNotFound
		}
		return nil, digestdomain.ErrInvalidTransition
	}
	return r.FindByID(actionID)
}

func (r *suggestionRepository) SupersedeProposed(clusterID, reason string) (int64, error) {
	result := r.db.Model(&digestdomain.SuggestedAction{}).
		Where("cluster_id = ? AND status = ?", clusterID, digestdomain.SuggestionStatusProposed).
		Updates(map[string]interface{}{
			"status":        digestdomain.SuggestionStatusRejected,
			"decided_at":    time.Now(),
			"decision_note": reason,
		})
	return result.RowsAffected, result.Error
}
