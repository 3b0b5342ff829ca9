package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

func TestImportMessageIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ts := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	first := e.importer.ImportMessage(e.record("m-1", "t-1", ts))
	require.Empty(t, first.Error)
	assert.Equal(t, digestdomain.ImportCreated, first.Outcome)
	require.NotEmpty(t, first.MessageID)

	// Byte-identical replay is a no-op duplicate
	replay := e.importer.ImportMessage(e.record("m-1", "t-1", ts))
	require.Empty(t, replay.Error)
	assert.Equal(t, digestdomain.ImportUnchanged, replay.Outcome)
	assert.Equal(t, first.MessageID, replay.MessageID)

	var count int64
	require.NoError(t, e.db.Model(&digestdomain.Message{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestImportMessageMergesNewerDelivery(t *testing.T) {
	e := newEnv(t)
	ts := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	rec := e.record("m-1", "t-1", ts)
	rec.HistoryID = "100"
	created := e.importer.ImportMessage(rec)
	require.Equal(t, digestdomain.ImportCreated, created.Outcome)

	// Newer historyId with changed labels updates in place
	newer := e.record("m-1", "t-1", ts)
	newer.HistoryID = "150"
	newer.Labels = []string{"CATEGORY_PROMOTIONS"}
	updated := e.importer.ImportMessage(newer)
	require.Empty(t, updated.Error)
	assert.Equal(t, digestdomain.ImportUpdated, updated.Outcome)
	assert.Equal(t, created.MessageID, updated.MessageID)

	stored, err := e.messageRepo.FindByID(created.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "150", stored.HistoryID)
	assert.Equal(t, []string{"CATEGORY_PROMOTIONS"}, []string(stored.Labels))
	// Losing the INBOX label upstream archives the message here
	assert.Equal(t, digestdomain.MessageStatusArchived, stored.Status)

	// A stale redelivery with an older historyId changes nothing
	stale := e.record("m-1", "t-1", ts)
	stale.HistoryID = "120"
	stale.Labels = []string{"INBOX"}
	outcome := e.importer.ImportMessage(stale)
	require.Empty(t, outcome.Error)
	assert.Equal(t, digestdomain.ImportUnchanged, outcome.Outcome)

	stored, err = e.messageRepo.FindByID(created.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "150", stored.HistoryID)
	assert.Equal(t, digestdomain.MessageStatusArchived, stored.Status)
}

func TestImportMessageResolvesThreadAndTouches(t *testing.T) {
	e := newEnv(t)
	morning := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	noon := morning.Add(4 * time.Hour)

	// Deliver out of order: noon first, morning second
	first := e.importer.ImportMessage(e.record("m-noon", "t-1", noon))
	require.Equal(t, digestdomain.ImportCreated, first.Outcome)
	second := e.importer.ImportMessage(e.record("m-morning", "t-1", morning))
	require.Equal(t, digestdomain.ImportCreated, second.Outcome)

	thread, err := e.threadRepo.FindByExternalKey(e.user.ID, digestdomain.ChannelGmail, "t-1")
	require.NoError(t, err)
	require.NotNil(t, thread)
	require.NotNil(t, thread.LastMessageAt)
	// The older message did not regress the watermark
	assert.True(t, thread.LastMessageAt.Equal(noon))

	// Both messages link to the same thread row
	m1, _ := e.messageRepo.FindByID(first.MessageID)
	m2, _ := e.messageRepo.FindByID(second.MessageID)
	require.NotNil(t, m1.ThreadID)
	require.NotNil(t, m2.ThreadID)
	assert.Equal(t, *m1.ThreadID, *m2.ThreadID)
}

func TestImportMessageWithoutThread(t *testing.T) {
	e := newEnv(t)

	rec := e.record("m-1", "", time.Now())
	rec.Channel = digestdomain.ChannelIMAP
	result := e.importer.ImportMessage(rec)
	require.Empty(t, result.Error)

	stored, err := e.messageRepo.FindByID(result.MessageID)
	require.NoError(t, err)
	assert.Nil(t, stored.ThreadID)
	assert.Empty(t, stored.ThreadExternalID)
}

func TestImportMessageDerivesStatusOnCreate(t *testing.T) {
	e := newEnv(t)
	ts := time.Now()

	archived := e.record("m-promo", "", ts)
	archived.Labels = []string{"CATEGORY_PROMOTIONS"}
	result := e.importer.ImportMessage(archived)
	require.Equal(t, digestdomain.ImportCreated, result.Outcome)

	stored, err := e.messageRepo.FindByID(result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, digestdomain.MessageStatusArchived, stored.Status)

	// A byte-identical redelivery has nothing to apply
	replayed := e.record("m-promo", "", ts)
	replayed.Labels = []string{"CATEGORY_PROMOTIONS"}
	replay := e.importer.ImportMessage(replayed)
	assert.Equal(t, digestdomain.ImportUnchanged, replay.Outcome)

	trashed := e.record("m-trash", "", ts)
	trashed.Labels = []string{"TRASH"}
	result = e.importer.ImportMessage(trashed)
	require.Equal(t, digestdomain.ImportCreated, result.Outcome)
	stored, err = e.messageRepo.FindByID(result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, digestdomain.MessageStatusDeleted, stored.Status)

	unlabeled := e.record("m-plain", "", ts)
	unlabeled.Labels = nil
	result = e.importer.ImportMessage(unlabeled)
	require.Equal(t, digestdomain.ImportCreated, result.Outcome)
	stored, err = e.messageRepo.FindByID(result.MessageID)
	require.NoError(t, err)
	assert.Equal(t, digestdomain.MessageStatusInbox, stored.Status)
}

func TestImportBatchIsolatesMalformedRecords(t *testing.T) {
	e := newEnv(t)
	ts := time.Now()

	bad := e.record("m-bad", "", ts)
	bad.Sender = ""

	unknownChannel := e.record("m-chan", "", ts)
	unknownChannel.Channel = digestdomain.Channel("carrier-pigeon")

	results := e.importer.ImportBatch([]*digestdomain.MessageRecord{
		e.record("m-1", "", ts),
		bad,
		unknownChannel,
		e.record("m-2", "", ts),
	})
	require.Len(t, results, 4)

	assert.Equal(t, digestdomain.ImportCreated, results[0].Outcome)
	assert.Equal(t, digestdomain.ImportCreated, results[3].Outcome)

	var verr *digestdomain.ValidationError
	require.Error(t, results[1].Err)
	require.ErrorAs(t, results[1].Err, &verr)
	assert.Equal(t, "sender", verr.Field)

	require.Error(t, results[2].Err)
	require.ErrorAs(t, results[2].Err, &verr)
	assert.Equal(t, "channel", verr.Field)

	var count int64
	require.NoError(t, e.db.Model(&digestdomain.Message{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestReconcileThreadsBackfillsOrphans(t *testing.T) {
	e := newEnv(t)
	ts := time.Now()

	// Orphan row: carries a thread external id but no link
	orphan := &digestdomain.Message{
		UserID: e.user.ID, Channel: digestdomain.ChannelGmail,
		ExternalID: "m-orphan", ThreadExternalID: "t-late",
		Timestamp: ts, Sender: "a@b.c", Subject: "s",
		Status: digestdomain.MessageStatusInbox,
	}
	require.NoError(t, e.messageRepo.Create(orphan))

	// No thread yet: reconcile links nothing
	linked, err := e.importer.ReconcileThreads(e.user.ID)
	require.NoError(t, err)
	assert.Zero(t, linked)

	thread, err := e.registry.ResolveOrCreateThread(e.user.ID, digestdomain.ChannelGmail, "t-late", "late thread")
	require.NoError(t, err)

	linked, err = e.importer.ReconcileThreads(e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, linked)

	stored, err := e.messageRepo.FindByID(orphan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ThreadID)
	assert.Equal(t, thread.ID, *stored.ThreadID)
}
