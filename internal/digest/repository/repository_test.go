package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// testDB opens a throwaway sqlite database with the digest schema
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "digest_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&digestdomain.Thread{},
		&digestdomain.Message{},
		&digestdomain.Cluster{},
		&digestdomain.SuggestedAction{},
	))
	return db
}

func newTestMessage(userID string, ts time.Time) *digestdomain.Message {
	return &digestdomain.Message{
		UserID:     userID,
		Channel:    digestdomain.ChannelGmail,
		ExternalID: uuid.New().String(),
		Timestamp:  ts,
		Sender:     "alice@example.com",
		Subject:    "hello",
		Status:     digestdomain.MessageStatusInbox,
	}
}

func TestThreadFirstOrCreateIsIdempotent(t *testing.T) {
	db := testDB(t)
	repo := NewThreadRepository(db)

	first, err := repo.FirstOrCreate("u1", digestdomain.ChannelGmail, "t-100", "Launch plan")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := repo.FirstOrCreate("u1", digestdomain.ChannelGmail, "t-100", "different hint")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Launch plan", second.Subject)

	// Same external id under another user or channel is a distinct thread
	otherUser, err := repo.FirstOrCreate("u2", digestdomain.ChannelGmail, "t-100", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, otherUser.ID)

	otherChannel, err := repo.FirstOrCreate("u1", digestdomain.ChannelIMAP, "t-100", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, otherChannel.ID)
}

func TestThreadTouchNeverRegresses(t *testing.T) {
	db := testDB(t)
	repo := NewThreadRepository(db)

	thread, err := repo.FirstOrCreate("u1", digestdomain.ChannelGmail, "t-200", "")
	require.NoError(t, err)

	noon := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Touch(thread.ID, noon))

	got, err := repo.FindByID(thread.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, got.LastMessageAt.Equal(noon))

	// An out-of-order older message leaves the watermark alone
	require.NoError(t, repo.Touch(thread.ID, noon.Add(-3*time.Hour)))
	got, err = repo.FindByID(thread.ID)
	require.NoError(t, err)
	assert.True(t, got.LastMessageAt.Equal(noon))

	// A newer one advances it
	evening := noon.Add(6 * time.Hour)
	require.NoError(t, repo.Touch(thread.ID, evening))
	got, err = repo.FindByID(thread.ID)
	require.NoError(t, err)
	assert.True(t, got.LastMessageAt.Equal(evening))
}

func TestThreadDeleteDetachesMessages(t *testing.T) {
	db := testDB(t)
	threadRepo := NewThreadRepository(db)
	messageRepo := NewMessageRepository(db)

	thread, err := threadRepo.FirstOrCreate("u1", digestdomain.ChannelGmail, "t-300", "")
	require.NoError(t, err)

	msg := newTestMessage("u1", time.Now())
	msg.ThreadID = &thread.ID
	msg.ThreadExternalID = "t-300"
	require.NoError(t, messageRepo.Create(msg))

	require.NoError(t, threadRepo.Delete(thread.ID))

	gone, err := threadRepo.FindByID(thread.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	survivor, err := messageRepo.FindByID(msg.ID)
	require.NoError(t, err)
	require.NotNil(t, survivor)
	assert.Nil(t, survivor.ThreadID)
	assert.Equal(t, "t-300", survivor.ThreadExternalID)
}

func TestMessageCreateRejectsDuplicateKey(t *testing.T) {
	db := testDB(t)
	repo := NewMessageRepository(db)

	msg := newTestMessage("u1", time.Now())
	msg.ExternalID = "m-1"
	require.NoError(t, repo.Create(msg))

	dup := newTestMessage("u1", time.Now())
	dup.ExternalID = "m-1"
	err := repo.Create(dup)
	assert.ErrorIs(t, err, digestdomain.ErrConflict)

	// Same external id for another user is fine
	other := newTestMessage("u2", time.Now())
	other.ExternalID = "m-1"
	assert.NoError(t, repo.Create(other))
}

func TestFindUnclusteredInWindow(t *testing.T) {
	db := testDB(t)
	repo := NewMessageRepository(db)

	dayStart := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	inWindow := newTestMessage("u1", dayStart.Add(10*time.Hour))
	require.NoError(t, repo.Create(inWindow))

	before := newTestMessage("u1", dayStart.Add(-time.Minute))
	require.NoError(t, repo.Create(before))

	atEnd := newTestMessage("u1", dayEnd)
	require.NoError(t, repo.Create(atEnd))

	deleted := newTestMessage("u1", dayStart.Add(12*time.Hour))
	deleted.Status = digestdomain.MessageStatusDeleted
	require.NoError(t, repo.Create(deleted))

	clustered := newTestMessage("u1", dayStart.Add(14*time.Hour))
	clusterID := "c-existing"
	clustered.ClusterID = &clusterID
	require.NoError(t, repo.Create(clustered))

	got, err := repo.FindUnclusteredInWindow("u1", dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inWindow.ID, got[0].ID)
}

func TestClusterCreateWithMessagesClaimsOnlyUnassigned(t *testing.T) {
	db := testDB(t)
	clusterRepo := NewClusterRepository(db)
	messageRepo := NewMessageRepository(db)

	m1 := newTestMessage("u1", time.Now())
	m2 := newTestMessage("u1", time.Now())
	require.NoError(t, messageRepo.Create(m1))
	require.NoError(t, messageRepo.Create(m2))

	first := &digestdomain.Cluster{UserID: "u1", DigestDate: "2026-08-30", AlgoVersion: "clustering_v1", Title: "first"}
	assigned, err := clusterRepo.CreateWithMessages(first, []string{m1.ID, m2.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, assigned)

	// A second cluster over the same members loses every claim and must
	// not be persisted
	second := &digestdomain.Cluster{UserID: "u1", DigestDate: "2026-08-30", AlgoVersion: "clustering_v1", Title: "second"}
	_, err = clusterRepo.CreateWithMessages(second, []string{m1.ID, m2.ID})
	assert.ErrorIs(t, err, digestdomain.ErrConflict)

	clusters, err := clusterRepo.FindByUserAndDate("u1", "2026-08-30", "clustering_v1")
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "first", clusters[0].Title)

	members, err := messageRepo.FindByCluster(first.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestClusterCreateWithMessagesPartialClaim(t *testing.T) {
	db := testDB(t)
	clusterRepo := NewClusterRepository(db)
	messageRepo := NewMessageRepository(db)

	claimed := newTestMessage("u1", time.Now())
	free := newTestMessage("u1", time.Now())
	require.NoError(t, messageRepo.Create(claimed))
	require.NoError(t, messageRepo.Create(free))

	first := &digestdomain.Cluster{UserID: "u1", DigestDate: "2026-08-30"}
	_, err := clusterRepo.CreateWithMessages(first, []string{claimed.ID})
	require.NoError(t, err)

	// A retry naming both messages claims only the free one
	retry := &digestdomain.Cluster{UserID: "u1", DigestDate: "2026-08-30"}
	assigned, err := clusterRepo.CreateWithMessages(retry, []string{claimed.ID, free.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, assigned)

	stillFirst, err := messageRepo.FindByID(claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, *stillFirst.ClusterID)
}

func TestClusterDeleteDetachesMessagesAndRemovesActions(t *testing.T) {
	db := testDB(t)
	clusterRepo := NewClusterRepository(db)
	messageRepo := NewMessageRepository(db)
	suggestionRepo := NewSuggestionRepository(db)

	msg := newTestMessage("u1", time.Now())
	require.NoError(t, messageRepo.Create(msg))

	cluster := &digestdomain.Cluster{UserID: "u1", DigestDate: "2026-08-30"}
	_, err := clusterRepo.CreateWithMessages(cluster, []string{msg.ID})
	require.NoError(t, err)

	action := &digestdomain.SuggestedAction{
		UserID:     "u1",
		ClusterID:  cluster.ID,
		ActionType: digestdomain.ActionArchiveAll,
		Urgency:    digestdomain.UrgencyLow,
	}
	require.NoError(t, suggestionRepo.Create(action))

	require.NoError(t, clusterRepo.Delete(cluster.ID))

	// The message survives unassigned, the action does not
	survivor, err := messageRepo.FindByID(msg.ID)
	require.NoError(t, err)
	require.NotNil(t, survivor)
	assert.Nil(t, survivor.ClusterID)

	goneAction, err := suggestionRepo.FindByID(action.ID)
	require.NoError(t, err)
	assert.Nil(t, goneAction)
}

func TestSuggestionDecideIsTerminal(t *testing.T) {
	db := testDB(t)
	repo := NewSuggestionRepository(db)

	action := &digestdomain.SuggestedAction{
		UserID:     "u1",
		ClusterID:  "c1",
		ActionType: digestdomain.ActionSnooze,
		Urgency:    digestdomain.UrgencyMedium,
	}
	require.NoError(t, repo.Create(action))

	decided, err := repo.Decide(action.ID, digestdomain.SuggestionStatusAccepted, time.Now())
	require.NoError(t, err)
	assert.Equal(t, digestdomain.SuggestionStatusAccepted, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	// Second decision of any kind is rejected
	_, err = repo.Decide(action.ID, digestdomain.SuggestionStatusRejected, time.Now())
	assert.ErrorIs(t, err, digestdomain.ErrInvalidTransition)

	// The stored outcome is untouched
	got, err := repo.FindByID(action.ID)
	require.NoError(t, err)
	assert.Equal(t, digestdomain.SuggestionStatusAccepted, got.Status)

	// Unknown ids are distinguished from already-decided ones
	_, err = repo.Decide("missing", digestdomain.SuggestionStatusAccepted, time.Now())
	assert.ErrorIs(t, err, digestdomain.ErrNotFound)
}

func TestSupersedeProposedLeavesDecidedAlone(t *testing.T) {
	db := testDB(t)
	repo := NewSuggestionRepository(db)

	proposed := &digestdomain.SuggestedAction{
		UserID: "u1", ClusterID: "c1",
		ActionType: digestdomain.ActionArchiveAll,
	}
	require.NoError(t, repo.Create(proposed))

	accepted := &digestdomain.SuggestedAction{
		UserID: "u1", ClusterID: "c1",
		ActionType: digestdomain.ActionSnooze,
	}
	require.NoError(t, repo.Create(accepted))
	_, err := repo.Decide(accepted.ID, digestdomain.SuggestionStatusAccepted, time.Now())
	require.NoError(t, err)

	count, err := repo.SupersedeProposed("c1", "superseded by regeneration")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	gotProposed, err := repo.FindByID(proposed.ID)
	require.NoError(t, err)
	assert.Equal(t, digestdomain.SuggestionStatusRejected, gotProposed.Status)
	assert.Equal(t, "superseded by regeneration", gotProposed.DecisionNote)
	assert.NotNil(t, gotProposed.DecidedAt)

	gotAccepted, err := repo.FindByID(accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, digestdomain.SuggestionStatusAccepted, gotAccepted.Status)
	assert.Empty(t, gotAccepted.DecisionNote)
}

func TestMessageFindByUserFiltersAndCounts(t *testing.T) {
	db := testDB(t)
	repo := NewMessageRepository(db)

	for i := 0; i < 3; i++ {
		m := newTestMessage("u1", time.Now().Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(m))
	}
	archived := newTestMessage("u1", time.Now())
	archived.Status = digestdomain.MessageStatusArchived
	require.NoError(t, repo.Create(archived))

	all, total, err := repo.FindByUser("u1", nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)

	status := digestdomain.MessageStatusArchived
	got, total, err := repo.FindByUser("u1", &status, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.Equal(t, archived.ID, got[0].ID)
}
