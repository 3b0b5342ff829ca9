package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	"github.com/inboxsherpa/inboxsherpa/pkg/grouping"
	"github.com/inboxsherpa/inboxsherpa/pkg/scoring"
)

// stubScorer returns canned proposals or a canned error
type stubScorer struct {
	proposals []scoring.Proposal
	err       error
	calls     int
}

func (s *stubScorer) ProposeActions(_ context.Context, _ *digestdomain.Cluster, _ []*digestdomain.Message) ([]scoring.Proposal, error) {
	s.calls++
	return s.proposals, s.err
}

// seedCluster imports one message and builds the day, returning the cluster
func (e *env) seedCluster(t *testing.T) *digestdomain.Cluster {
	t.Helper()
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	result := e.importer.ImportMessage(e.record("m-1", "t-1", day.Add(9*time.Hour)))
	require.Equal(t, digestdomain.ImportCreated, result.Outcome)

	uc := e.clusterUsecase(grouping.NewThreadGrouping())
	report, err := uc.BuildDailyClusters(context.Background(), e.user.ID, "2026-08-30", "clustering_v1")
	require.NoError(t, err)
	require.Len(t, report.Clusters, 1)
	return report.Clusters[0]
}

func (e *env) suggestionUsecase(scorer scoring.Scorer) SuggestionUsecase {
	return NewSuggestionUsecase(e.actionRepo, e.clusterRepo, e.messageRepo, e.userRepo, scorer)
}

func TestProposeActionsPersistsProposals(t *testing.T) {
	e := newEnv(t)
	cluster := e.seedCluster(t)

	scorer := &stubScorer{proposals: []scoring.Proposal{
		{ActionType: digestdomain.ActionArchiveAll, Urgency: digestdomain.UrgencyLow, Confidence: scoring.Confidence(0.9)},
		{ActionType: digestdomain.ActionSnooze, Urgency: digestdomain.UrgencyMedium, Payload: map[string]interface{}{"until": "2026-09-01"}},
	}}
	uc := e.suggestionUsecase(scorer)

	actions, err := uc.ProposeActions(context.Background(), e.user.ID, cluster.ID, false)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	for _, action := range actions {
		assert.NotEmpty(t, action.ID)
		assert.Equal(t, e.user.ID, action.UserID)
		assert.Equal(t, cluster.ID, action.ClusterID)
		assert.Equal(t, digestdomain.SuggestionStatusProposed, action.Status)
	}
	assert.Equal(t, 0.9, *actions[0].Confidence)

	listed, err := uc.ListActions(e.user.ID, cluster.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestProposeActionsSanitizesScorerOutput(t *testing.T) {
	e := newEnv(t)
	cluster := e.seedCluster(t)

	scorer := &stubScorer{proposals: []scoring.Proposal{
		{ActionType: "delete_everything", Urgency: digestdomain.UrgencyHigh},
		{ActionType: digestdomain.ActionLabelAdd, Urgency: "panic", Confidence: scoring.Confidence(1.7)},
	}}
	uc := e.suggestionUsecase(scorer)

	actions, err := uc.ProposeActions(context.Background(), e.user.ID, cluster.ID, false)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, digestdomain.ActionLabelAdd, actions[0].ActionType)
	assert.Equal(t, digestdomain.UrgencyLow, actions[0].Urgency)
	assert.Nil(t, actions[0].Confidence)
}

func TestProposeActionsUnknownCluster(t *testing.T) {
	e := newEnv(t)
	uc := e.suggestionUsecase(&stubScorer{})

	_, err := uc.ProposeActions(context.Background(), e.user.ID, "missing", false)
	assert.ErrorIs(t, err, digestdomain.ErrNotFound)
}

func TestProposeActionsScorerFailure(t *testing.T) {
	e := newEnv(t)
	cluster := e.seedCluster(t)
	uc := e.suggestionUsecase(&stubScorer{err: errors.New("provider timeout")})

	_, err := uc.ProposeActions(context.Background(), e.user.ID, cluster.ID, false)
	require.Error(t, err)

	listed, err := uc.ListActions(e.user.ID, cluster.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestProposeActionsRegenerateSupersedesUndecided(t *testing.T) {
	e := newEnv(t)
	cluster := e.seedCluster(t)

	scorer := &stubScorer{proposals: []scoring.Proposal{
		{ActionType: digestdomain.ActionArchiveAll, Urgency: digestdomain.UrgencyLow},
		{ActionType: digestdomain.ActionSnooze, Urgency: digestdomain.UrgencyLow},
	}}
	uc := e.suggestionUsecase(scorer)

	first, err := uc.ProposeActions(context.Background(), e.user.ID, cluster.ID, false)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// The user accepts one; the other stays proposed
	accepted, err := uc.Decide(e.user.ID, first[0].ID, digestdomain.SuggestionStatusAccepted)
	require.NoError(t, err)
	require.NotNil(t, accepted.DecidedAt)

	second, err := uc.ProposeActions(context.Background(), e.user.ID, cluster.ID, true)
	require.NoError(t, err)
	require.Len(t, second, 2)

	listed, err := uc.ListActions(e.user.ID, cluster.ID)
	require.NoError(t, err)
	require.Len(t, listed, 4)

	var acceptedCount, rejectedCount, proposedCount int
	for _, action := range listed {
		switch action.Status {
		case digestdomain.SuggestionStatusAccepted:
			acceptedCount++
		case digestdomain.SuggestionStatusRejected:
			rejectedCount++
			assert.Equal(t, supersededReason, action.DecisionNote)
		case digestdomain.SuggestionStatusProposed:
			proposedCount++
		}
	}
	assert.Equal(t, 1, acceptedCount)
	assert.Equal(t, 1, rejectedCount)
	assert.Equal(t, 2, proposedCount)
}

func TestProposeActionsWithoutRegenerateAppends(t *testing.T) {
	e := newEnv(t)
	cluster := e.seedCluster(t)

	scorer := &stubScorer{proposals: []scoring.Proposal{
		{ActionType: digestdomain.ActionArchiveAll, Urgency: digestdomain.UrgencyLow},
	}}
	uc := e.suggestionUsecase(scorer)

	_, err := uc.ProposeActions(context.Background(), e.user.ID, cluster.ID, false)
	require.NoError(t, err)
	_, err = uc.ProposeActions(context.Background(), e.user.ID, cluster.ID, false)
	require.NoError(t, err)

	listed, err := uc.ListActions(e.user.ID, cluster.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
	for _, action := range listed {
		assert.Equal(t, digestdomain.SuggestionStatusProposed, action.Status)
	}
}

func TestDecideRejectsNonTerminalOutcome(t *testing.T) {
	e := newEnv(t)
	uc := e.suggestionUsecase(&stubScorer{})

	_, err := uc.Decide(e.user.ID, "any", digestdomain.SuggestionStatusProposed)
	var verr *digestdomain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "outcome", verr.Field)
}

func TestDecideIsFirstWriterWins(t *testing.T) {
	e := newEnv(t)
	cluster := e.seedCluster(t)

	scorer := &stubScorer{proposals: []scoring.Proposal{
		{ActionType: digestdomain.ActionReplyWithTemplate, Urgency: digestdomain.UrgencyHigh},
	}}
	uc := e.suggestionUsecase(scorer)

	actions, err := uc.ProposeActions(context.Background(), e.user.ID, cluster.ID, false)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	decided, err := uc.Decide(e.user.ID, actions[0].ID, digestdomain.SuggestionStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, digestdomain.SuggestionStatusAccepted, decided.Status)

	_, err = uc.Decide(e.user.ID, actions[0].ID, digestdomain.SuggestionStatusRejected)
	assert.ErrorIs(t, err, digestdomain.ErrInvalidTransition)

	_, err = uc.Decide(e.user.ID, "missing", digestdomain.SuggestionStatusAccepted)
	assert.ErrorIs(t, err, digestdomain.ErrNotFound)
}

func TestForeignClusterAndActionAreNotFound(t *testing.T) {
	e := newEnv(t)
	cluster := e.seedCluster(t)

	scorer := &stubScorer{proposals: []scoring.Proposal{
		{ActionType: digestdomain.ActionArchiveAll, Urgency: digestdomain.UrgencyLow},
	}}
	uc := e.suggestionUsecase(scorer)

	actions, err := uc.ProposeActions(context.Background(), e.user.ID, cluster.ID, false)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	intruder := e.otherUser(t)

	_, err = uc.ProposeActions(context.Background(), intruder.ID, cluster.ID, false)
	assert.ErrorIs(t, err, digestdomain.ErrNotFound)

	_, err = uc.ListActions(intruder.ID, cluster.ID)
	assert.ErrorIs(t, err, digestdomain.ErrNotFound)

	_, err = uc.Decide(intruder.ID, actions[0].ID, digestdomain.SuggestionStatusRejected)
	assert.ErrorIs(t, err, digestdomain.ErrNotFound)

	// The owner's action is untouched and still decidable
	listed, err := uc.ListActions(e.user.ID, cluster.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, digestdomain.SuggestionStatusProposed, listed[0].Status)
	assert.Nil(t, listed[0].DecidedAt)
}

func TestProposeActionsOrphanedClusterOwner(t *testing.T) {
	e := newEnv(t)
	cluster := e.seedCluster(t)

	// Simulate a cluster whose owner row is gone without the cascade
	require.NoError(t, e.db.Exec("DELETE FROM users WHERE id = ?", e.user.ID).Error)

	uc := e.suggestionUsecase(&stubScorer{})
	_, err := uc.ProposeActions(context.Background(), e.user.ID, cluster.ID, false)
	assert.ErrorIs(t, err, digestdomain.ErrInconsistentState)
}
