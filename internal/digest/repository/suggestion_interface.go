package repository

import (
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// SuggestionRepository defines the interface for suggested-action data access
type SuggestionRepository interface {
	// Create persists a new proposed action
	Create(action *digestdomain.SuggestedAction) error

	// FindByID finds an action by ID. Returns (nil, nil) when absent.
	FindByID(id string) (*digestdomain.SuggestedAction, error)

	// FindByCluster returns all actions for a cluster, oldest first
	FindByCluster(clusterID string) ([]*digestdomain.SuggestedAction, error)

	// Decide flips a proposed action to accepted or rejected with a
	// compare-and-set on the current status. Exactly one concurrent caller
	// wins; the rest get domain.ErrInvalidTransition.
	Decide(actionID string, outcome digestdomain.SuggestionStatus, decidedAt time.Time) (*digestdomain.SuggestedAction, error)

	// SupersedeProposed rejects every still-proposed action of a cluster
	// with a system-generated reason. Decided actions are never touched.
	SupersedeProposed(clusterID, reason string) (int64, error)
}
