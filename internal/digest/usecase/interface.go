package usecase

import (
	"context"
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// ImporterUsecase defines the interface for idempotent message ingestion
type ImporterUsecase interface {
	// ImportMessage ingests one normalized record. Re-ingesting the same
	// (user, channel, externalId) updates or no-ops, never duplicates.
	ImportMessage(record *digestdomain.MessageRecord) digestdomain.ImportResult

	// ImportBatch ingests a batch with per-record results; a malformed
	// record never aborts the rest of the batch
	ImportBatch(records []*digestdomain.MessageRecord) []digestdomain.ImportResult

	// ReconcileThreads backfills thread links for messages that were
	// imported before their thread existed
	ReconcileThreads(userID string) (int, error)

	// GetMessages lists a user's messages with an optional status filter
	GetMessages(userID string, status *digestdomain.MessageStatus, limit, offset int) ([]*digestdomain.Message, int64, error)
}

// ThreadRegistry deduplicates conversation threads per user+channel
type ThreadRegistry interface {
	// ResolveOrCreateThread returns the thread for the key, creating it
	// with the subject hint on miss
	ResolveOrCreateThread(userID string, channel digestdomain.Channel, externalID, subjectHint string) (*digestdomain.Thread, error)

	// Touch advances the thread's last_message_at; out-of-order timestamps
	// never regress it
	Touch(threadID string, messageTimestamp time.Time) error
}

// BuildReport is the outcome of one clustering pass
type BuildReport struct {
	Clusters []*digestdomain.Cluster `json:"clusters"`
	// SkippedMessageIDs lists selected messages that stayed unclustered
	// (grouping failure or lost assignment race); they are picked up again
	// by the next run
	SkippedMessageIDs []string `json:"skipped_message_ids,omitempty"`
}

// ClusterUsecase defines the interface for digest cluster building
type ClusterUsecase interface {
	// BuildDailyClusters groups the user's unclustered messages for the
	// given digest date (YYYY-MM-DD, in the user's zone). Safe to retry:
	// a rerun claims only messages a previous partial run left behind.
	BuildDailyClusters(ctx context.Context, userID, digestDate, algoVersion string) (*BuildReport, error)

	// GetClusters returns the clusters of a digest day
	GetClusters(userID, digestDate string) ([]*digestdomain.Cluster, error)

	// GetClusterMessages returns the messages assigned to a cluster. A
	// cluster owned by another user is indistinguishable from a missing one.
	GetClusterMessages(userID, clusterID string) ([]*digestdomain.Message, error)
}

// SuggestionUsecase defines the interface for the suggested-action lifecycle
type SuggestionUsecase interface {
	// ProposeActions runs the scoring capability over a cluster and stores
	// one proposed action per returned tuple. Additive unless regenerate is
	// set, in which case undecided proposals are superseded first. Clusters
	// owned by other users report domain.ErrNotFound.
	ProposeActions(ctx context.Context, userID, clusterID string, regenerate bool) ([]*digestdomain.SuggestedAction, error)

	// ListActions returns all actions of a cluster the user owns
	ListActions(userID, clusterID string) ([]*digestdomain.SuggestedAction, error)

	// Decide resolves a proposed action to accepted or rejected. Fails with
	// domain.ErrInvalidTransition once the action is decided; actions owned
	// by other users report domain.ErrNotFound.
	Decide(userID, actionID string, outcome digestdomain.SuggestionStatus) (*digestdomain.SuggestedAction, error)
}
