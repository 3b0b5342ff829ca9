package usecase

import (
	"context"
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	"github.com/inboxsherpa/inboxsherpa/internal/digest/repository"
	identityrepo "github.com/inboxsherpa/inboxsherpa/internal/identity/repository"
	"github.com/inboxsherpa/inboxsherpa/pkg/scoring"

	"github.com/rs/zerolog/log"
)

// supersededReason is stamped on proposals rejected by regeneration
const supersededReason = "superseded by regeneration"

// suggestionUsecase implements SuggestionUsecase
type suggestionUsecase struct {
	suggestionRepo repository.SuggestionRepository
	clusterRepo    repository.ClusterRepository
	messageRepo    repository.MessageRepository
	userRepo       identityrepo.UserRepository
	scorer         scoring.Scorer
}

// NewSuggestionUsecase creates a new suggestion engine with the injected
// scoring capability
func NewSuggestionUsecase(suggestionRepo repository.SuggestionRepository, clusterRepo repository.ClusterRepository, messageRepo repository.MessageRepository, userRepo identityrepo.UserRepository, scorer scoring.Scorer) SuggestionUsecase {
	return &suggestionUsecase{
		suggestionRepo: suggestionRepo,
		clusterRepo:    clusterRepo,
		messageRepo:    messageRepo,
		userRepo:       userRepo,
		scorer:         scorer,
	}
}

func (u *suggestionUsecase) ProposeActions(ctx context.Context, userID, clusterID string, regenerate bool) ([]*digestdomain.SuggestedAction, error) {
	cluster, err := u.clusterRepo.FindByID(clusterID)
	if err != nil {
		return nil, err
	}
	if cluster == nil || cluster.UserID != userID {
		return nil, digestdomain.ErrNotFound
	}

	// A cluster whose owner vanished means cascade delete was bypassed
	// somewhere; refuse to build on it
	owner, err := u.userRepo.FindByID(cluster.UserID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, digestdomain.ErrInconsistentState
	}

	messages, err := u.messageRepo.FindByCluster(clusterID)
	if err != nil {
		return nil, err
	}

	if regenerate {
		superseded, err := u.suggestionRepo.SupersedeProposed(clusterID, supersededReason)
		if err != nil {
			return nil, err
		}
		if superseded > 0 {
			log.Info().Str("cluster_id", clusterID).Int64("superseded", superseded).
				Msg("Superseded undecided proposals before regeneration")
		}
	}

	proposals, err := u.scorer.ProposeActions(ctx, cluster, messages)
	if err != nil {
		return nil, err
	}

	created := make([]*digestdomain.SuggestedAction, 0, len(proposals))
	for _, proposal := range proposals {
		if !proposal.ActionType.Valid() {
			log.Warn().Str("cluster_id", clusterID).Str("action_type", string(proposal.ActionType)).
				Msg("Scorer returned unknown action type, dropping proposal")
			continue
		}
		urgency := proposal.Urgency
		if !urgency.Valid() {
			urgency = digestdomain.UrgencyLow
		}
		confidence := proposal.Confidence
		if confidence != nil && (*confidence < 0 || *confidence > 1) {
			confidence = nil
		}

		action := &digestdomain.SuggestedAction{
			UserID:     cluster.UserID,
			ClusterID:  cluster.ID,
			ActionType: proposal.ActionType,
			Payload:    digestdomain.JSONMap(proposal.Payload),
			Urgency:    urgency,
			Confidence: confidence,
			Status:     digestdomain.SuggestionStatusProposed,
		}
		if err := u.suggestionRepo.Create(action); err != nil {
			return created, err
		}
		created = append(created, action)
	}

	return created, nil
}

func (u *suggestionUsecase) ListActions(userID, clusterID string) ([]*digestdomain.SuggestedAction, error) {
	cluster, err := u.clusterRepo.FindByID(clusterID)
	if err != nil {
		return nil, err
	}
	if cluster == nil || cluster.UserID != userID {
		return nil, digestdomain.ErrNotFound
	}
	return u.suggestionRepo.FindByCluster(clusterID)
}

func (u *suggestionUsecase) Decide(userID, actionID string, outcome digestdomain.SuggestionStatus) (*digestdomain.SuggestedAction, error) {
	if !outcome.Decided() {
		return nil, digestdomain.NewValidationError("outcome", "must be accepted or rejected")
	}
	action, err := u.suggestionRepo.FindByID(actionID)
	if err != nil {
		return nil, err
	}
	if action == nil || action.UserID != userID {
		return nil, digestdomain.ErrNotFound
	}
	return u.suggestionRepo.Decide(actionID, outcome, time.Now())
}
