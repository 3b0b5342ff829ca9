package domain

import "time"

// SuggestedAction is one proposed triage action derived from a cluster.
// Lifecycle: proposed -> accepted | rejected, both terminal. DecidedAt is
// null exactly while the action is still proposed.
type SuggestedAction struct {
	ID        string `json:"id" gorm:"primaryKey"`
	UserID    string `json:"user_id" gorm:"index:idx_suggested_actions_user_cluster;not null"`
	ClusterID string `json:"cluster_id" gorm:"index:idx_suggested_actions_user_cluster;not null"`

	ActionType ActionType `json:"action_type" gorm:"not null"`
	Payload    JSONMap    `json:"payload,omitempty" gorm:"type:text"`

	Urgency    Urgency  `json:"urgency" gorm:"default:low;not null"`
	Confidence *float64 `json:"confidence,omitempty"` // In [0,1] when set

	Status SuggestionStatus `json:"status" gorm:"default:proposed;not null"`

	// DecisionNote carries the system-generated reason when a proposal is
	// superseded by regeneration. Human decisions leave it empty.
	DecisionNote string `json:"decision_note,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// TableName specifies the table name for GORM
func (SuggestedAction) TableName() string {
	return "suggested_actions"
}
