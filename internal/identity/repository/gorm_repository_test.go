package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	identitydomain "github.com/inboxsherpa/inboxsherpa/internal/identity/domain"
)

// testDB opens a throwaway sqlite database with the full schema; the user
// cascade reaches into the digest tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "identity_test.db")
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
	return db
}

func newTestUser(email, mailbox string) *identitydomain.User {
	return &identitydomain.User{
		Email:             email,
		GmailAccountEmail: mailbox,
		Timezone:          "UTC",
	}
}

func TestUserCreateRejectsDuplicateBindings(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	require.NoError(t, repo.Create(newTestUser("a@app.dev", "a@gmail.com")))

	// Duplicate app email
	err := repo.Create(newTestUser("a@app.dev", "b@gmail.com"))
	assert.ErrorIs(t, err, digestdomain.ErrConflict)

	// Duplicate mailbox binding
	err = repo.Create(newTestUser("b@app.dev", "a@gmail.com"))
	assert.ErrorIs(t, err, digestdomain.ErrConflict)

	// Distinct on both is fine
	assert.NoError(t, repo.Create(newTestUser("b@app.dev", "b@gmail.com")))
}

func TestUserFindersReturnNilOnAbsent(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	user, err := repo.FindByEmail("nobody@app.dev")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.FindByGmailAccount("nobody@gmail.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserDeleteCascades(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	user := newTestUser("a@app.dev", "a@gmail.com")
	require.NoError(t, repo.Create(user))

	keeper := newTestUser("b@app.dev", "b@gmail.com")
	require.NoError(t, repo.Create(keeper))

	seed := func(userID, suffix string) {
		require.NoError(t, db.Create(&digestdomain.Thread{
			ID: "th-" + suffix, UserID: userID, Channel: digestdomain.ChannelGmail, ExternalID: "t-" + suffix,
		}).Error)
		require.NoError(t, db.Create(&digestdomain.Message{
			ID: "m-" + suffix, UserID: userID, Channel: digestdomain.ChannelGmail, ExternalID: "m-" + suffix,
			Timestamp: time.Now(), Sender: "x@y.z", Subject: "s", Status: digestdomain.MessageStatusInbox,
		}).Error)
		require.NoError(t, db.Create(&digestdomain.Cluster{
			ID: "c-" + suffix, UserID: userID, DigestDate: "2026-08-30", AlgoVersion: "clustering_v1",
		}).Error)
		require.NoError(t, db.Create(&digestdomain.SuggestedAction{
			ID: "a-" + suffix, UserID: userID, ClusterID: "c-" + suffix,
			ActionType: digestdomain.ActionSnooze, Urgency: digestdomain.UrgencyLow,
			Status: digestdomain.SuggestionStatusProposed,
		}).Error)
	}
	seed(user.ID, "1")
	seed(keeper.ID, "2")

	require.NoError(t, repo.SaveRefreshToken(&identitydomain.RefreshToken{
		Token: "rt-1", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, repo.Delete(user.ID))

	gone, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	var count int64
	for _, model := range []interface{}{
		&digestdomain.Thread{}, &digestdomain.Message{},
		&digestdomain.Cluster{}, &digestdomain.SuggestedAction{},
	} {
		require.NoError(t, db.Model(model).Where("user_id = ?", user.ID).Count(&count).Error)
		assert.Zero(t, count)
		require.NoError(t, db.Model(model).Where("user_id = ?", keeper.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count, "another user's rows must survive")
	}

	token, err := repo.FindRefreshToken("rt-1")
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestAdvanceSyncCursorIsMonotonic(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	user := newTestUser("a@app.dev", "a@gmail.com")
	require.NoError(t, repo.Create(user))

	cursor, err := repo.GetSyncCursor(user.ID)
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, repo.AdvanceSyncCursor(user.ID, "1000"))
	cursor, err = repo.GetSyncCursor(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000", cursor)

	// A stale cursor is ignored, not an error
	require.NoError(t, repo.AdvanceSyncCursor(user.ID, "999"))
	cursor, _ = repo.GetSyncCursor(user.ID)
	assert.Equal(t, "1000", cursor)

	// Numeric comparison, not lexical: 2000 > 1000 even though "2000" > "1000"
	// lexically too; "900" must not win over "1000"
	require.NoError(t, repo.AdvanceSyncCursor(user.ID, "900"))
	cursor, _ = repo.GetSyncCursor(user.ID)
	assert.Equal(t, "1000", cursor)

	require.NoError(t, repo.AdvanceSyncCursor(user.ID, "2000"))
	cursor, _ = repo.GetSyncCursor(user.ID)
	assert.Equal(t, "2000", cursor)

	err = repo.AdvanceSyncCursor("missing", "1")
	assert.ErrorIs(t, err, digestdomain.ErrNotFound)

	_, err = repo.GetSyncCursor("missing")
	assert.ErrorIs(t, err, digestdomain.ErrNotFound)
}

func TestCursorAdvances(t *testing.T) {
	assert.True(t, cursorAdvances("", "1"))
	assert.False(t, cursorAdvances("1", ""))
	assert.True(t, cursorAdvances("99", "100"))
	assert.False(t, cursorAdvances("100", "99"))
	assert.False(t, cursorAdvances("100", "100"))
	// Non-numeric cursors fall back to lexical order
	assert.True(t, cursorAdvances("abc", "abd"))
	assert.False(t, cursorAdvances("abd", "abc"))
}

func TestRefreshTokenLifecycle(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	user := newTestUser("a@app.dev", "a@gmail.com")
	require.NoError(t, repo.Create(user))

	expired := &identitydomain.RefreshToken{Token: "old", UserID: user.ID, ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, repo.SaveRefreshToken(expired))

	fresh := &identitydomain.RefreshToken{Token: "fresh", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.SaveRefreshToken(fresh))

	// Saving a fresh token sweeps the expired one
	gone, err := repo.FindRefreshToken("old")
	require.NoError(t, err)
	assert.Nil(t, gone)

	got, err := repo.FindRefreshToken("fresh")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.UserID)

	require.NoError(t, repo.DeleteRefreshToken("fresh"))
	got, err = repo.FindRefreshToken("fresh")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, CheckPasswordHash("hunter22", hash))
	assert.False(t, CheckPasswordHash("hunter23", hash))
}
