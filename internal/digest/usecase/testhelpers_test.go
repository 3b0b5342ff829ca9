package usecase

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	digestrepo "github.com/inboxsherpa/inboxsherpa/internal/digest/repository"
	identitydomain "github.com/inboxsherpa/inboxsherpa/internal/identity/domain"
	identityrepo "github.com/inboxsherpa/inboxsherpa/internal/identity/repository"
)

// env bundles the wired stack the usecase tests run against
type env struct {
	db          *gorm.DB
	userRepo    identityrepo.UserRepository
	threadRepo  digestrepo.ThreadRepository
	messageRepo digestrepo.MessageRepository
	clusterRepo digestrepo.ClusterRepository
	actionRepo  digestrepo.SuggestionRepository
	registry    ThreadRegistry
	importer    ImporterUsecase
	user        *identitydomain.User
}

func newEnv(t *testing.T) *env {
	t.Helper()

	path := filepath.Join(t.TempDir(), "usecase_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&identitydomain.User{},
		&identitydomain.RefreshToken{},
		&digestdomain.Thread{},
		&digestdomain.Message{},
		&digestdomain.Cluster{},
		&digestdomain.SuggestedAction{},
	))

	e := &env{
		db:          db,
		userRepo:    identityrepo.NewUserRepository(db),
		threadRepo:  digestrepo.NewThreadRepository(db),
		messageRepo: digestrepo.NewMessageRepository(db),
		clusterRepo: digestrepo.NewClusterRepository(db),
		actionRepo:  digestrepo.NewSuggestionRepository(db),
	}
	e.registry = NewThreadRegistry(e.threadRepo)
	e.importer = NewImporterUsecase(e.messageRepo, e.threadRepo, e.registry)

	e.user = &identitydomain.User{
		Email:             "owner@app.dev",
		GmailAccountEmail: "owner@gmail.com",
		Timezone:          "UTC",
	}
	require.NoError(t, e.userRepo.Create(e.user))

	return e
}

// otherUser creates a second account for cross-tenant checks
func (e *env) otherUser(t *testing.T) *identitydomain.User {
	t.Helper()
	user := &identitydomain.User{
		Email:             "intruder@app.dev",
		GmailAccountEmail: "intruder@gmail.com",
		Timezone:          "UTC",
	}
	require.NoError(t, e.userRepo.Create(user))
	return user
}

func (e *env) record(externalID, threadExternalID string, ts time.Time) *digestdomain.MessageRecord {
	return &digestdomain.MessageRecord{
		UserID:           e.user.ID,
		Channel:          digestdomain.ChannelGmail,
		ExternalID:       externalID,
		ThreadExternalID: threadExternalID,
		Timestamp:        ts,
		Sender:           "alice@example.com",
		Subject:          "Quarterly report",
		Snippet:          "Numbers attached",
		Labels:           []string{"INBOX"},
	}
}
