package usecase

import (
	"errors"
	"reflect"
	"strconv"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	"github.com/inboxsherpa/inboxsherpa/internal/digest/repository"

	"github.com/rs/zerolog/log"
)

// importerUsecase implements ImporterUsecase
type importerUsecase struct {
	messageRepo repository.MessageRepository
	threadRepo  repository.ThreadRepository
	registry    ThreadRegistry
}

// NewImporterUsecase creates a new importer
func NewImporterUsecase(messageRepo repository.MessageRepository, threadRepo repository.ThreadRepository, registry ThreadRegistry) ImporterUsecase {
	return &importerUsecase{
		messageRepo: messageRepo,
		threadRepo:  threadRepo,
		registry:    registry,
	}
}

func (u *importerUsecase) ImportMessage(record *digestdomain.MessageRecord) digestdomain.ImportResult {
	result := digestdomain.ImportResult{ExternalID: record.ExternalID}

	if err := record.Validate(); err != nil {
		result.Err = err
		result.Error = err.Error()
		return result
	}

	existing, err := u.messageRepo.FindByExternalKey(record.UserID, record.Channel, record.ExternalID)
	if err != nil {
		result.Err = err
		result.Error = err.Error()
		return result
	}

	if existing != nil {
		return u.mergeExisting(existing, record)
	}

	message := u.newMessage(record)
	if err := u.messageRepo.Create(message); err != nil {
		if errors.Is(err, digestdomain.ErrConflict) {
			// A concurrent importer inserted the same external id first;
			// fold this delivery into the winner's row
			existing, ferr := u.messageRepo.FindByExternalKey(record.UserID, record.Channel, record.ExternalID)
			if ferr != nil || existing == nil {
				result.Err = digestdomain.ErrInconsistentState
				result.Error = "duplicate insert without a visible row"
				return result
			}
			return u.mergeExisting(existing, record)
		}
		result.Err = err
		result.Error = err.Error()
		return result
	}

	if message.ThreadID != nil {
		if err := u.registry.Touch(*message.ThreadID, message.Timestamp); err != nil {
			log.Warn().Err(err).Str("thread_id", *message.ThreadID).Msg("Failed to touch thread")
		}
	}

	result.Outcome = digestdomain.ImportCreated
	result.MessageID = message.ID
	return result
}

func (u *importerUsecase) ImportBatch(records []*digestdomain.MessageRecord) []digestdomain.ImportResult {
	results := make([]digestdomain.ImportResult, 0, len(records))
	for _, record := range records {
		results = append(results, u.ImportMessage(record))
	}
	return results
}

// ReconcileThreads links messages whose thread did not exist at import time
func (u *importerUsecase) ReconcileThreads(userID string) (int, error) {
	orphans, err := u.messageRepo.FindOrphanedByThread(userID)
	if err != nil {
		return 0, err
	}
	linked := 0
	for _, msg := range orphans {
		thread, err := u.threadRepo.FindByExternalKey(msg.UserID, msg.Channel, msg.ThreadExternalID)
		if err != nil {
			return linked, err
		}
		if thread == nil {
			continue
		}
		if err := u.messageRepo.LinkThread(msg.ID, thread.ID); err != nil {
			return linked, err
		}
		if err := u.registry.Touch(thread.ID, msg.Timestamp); err != nil {
			log.Warn().Err(err).Str("thread_id", thread.ID).Msg("Failed to touch thread")
		}
		linked++
	}
	return linked, nil
}

func (u *importerUsecase) GetMessages(userID string, status *digestdomain.MessageStatus, limit, offset int) ([]*digestdomain.Message, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.messageRepo.FindByUser(userID, status, limit, offset)
}

// newMessage builds the row for a first-time import. Thread resolution is
// best effort: a channel without threading leaves thread_id null and keeps
// thread_external_id for later reconciliation.
func (u *importerUsecase) newMessage(record *digestdomain.MessageRecord) *digestdomain.Message {
	// Same derivation as on replay so a byte-identical redelivery is a no-op
	status := statusFromLabels(record.Labels)
	if status == "" {
		status = digestdomain.MessageStatusInbox
	}

	message := &digestdomain.Message{
		UserID:           record.UserID,
		Channel:          record.Channel,
		ExternalID:       record.ExternalID,
		ThreadExternalID: record.ThreadExternalID,
		Timestamp:        record.Timestamp,
		Sender:           record.Sender,
		Subject:          record.Subject,
		Snippet:          record.Snippet,
		BodyText:         record.BodyText,
		BodyHTML:         record.BodyHTML,
		Labels:           digestdomain.StringArray(record.Labels),
		HistoryID:        record.HistoryID,
		Status:           status,
		RawPayload:       digestdomain.JSONMap(record.RawPayload),
	}

	if record.ThreadExternalID != "" {
		thread, err := u.registry.ResolveOrCreateThread(record.UserID, record.Channel, record.ThreadExternalID, record.Subject)
		if err != nil {
			log.Warn().Err(err).
				Str("user_id", record.UserID).
				Str("thread_external_id", record.ThreadExternalID).
				Msg("Thread resolution failed, importing without thread link")
		} else {
			message.ThreadID = &thread.ID
		}
	}

	return message
}

// mergeExisting applies a redelivery to the stored message. Stale replays
// (older historyId or timestamp) are no-op duplicates.
func (u *importerUsecase) mergeExisting(existing *digestdomain.Message, record *digestdomain.MessageRecord) digestdomain.ImportResult {
	result := digestdomain.ImportResult{ExternalID: record.ExternalID, MessageID: existing.ID}

	if !recordSupersedes(existing, record) {
		result.Outcome = digestdomain.ImportUnchanged
		return result
	}

	if !applyMutableFields(existing, record) {
		// Tracking says equal-or-newer but nothing actually differs
		result.Outcome = digestdomain.ImportUnchanged
		return result
	}

	if err := u.messageRepo.Update(existing); err != nil {
		result.Err = err
		result.Error = err.Error()
		return result
	}

	if existing.ThreadID != nil {
		if err := u.registry.Touch(*existing.ThreadID, existing.Timestamp); err != nil {
			log.Warn().Err(err).Str("thread_id", *existing.ThreadID).Msg("Failed to touch thread")
		}
	}

	result.Outcome = digestdomain.ImportUpdated
	return result
}

// recordSupersedes reports whether the incoming delivery is at least as new
// as the stored row. HistoryIds order redeliveries when both sides carry
// one; timestamps break the tie otherwise.
func recordSupersedes(existing *digestdomain.Message, record *digestdomain.MessageRecord) bool {
	if existing.HistoryID != "" && record.HistoryID != "" {
		a, errA := strconv.ParseUint(existing.HistoryID, 10, 64)
		b, errB := strconv.ParseUint(record.HistoryID, 10, 64)
		if errA == nil && errB == nil {
			return b >= a
		}
	}
	return !record.Timestamp.Before(existing.Timestamp)
}

// applyMutableFields merges the record into the row and reports whether any
// field changed. Cluster assignment and status transitions done locally are
// never overwritten by a replay carrying the same data.
func applyMutableFields(existing *digestdomain.Message, record *digestdomain.MessageRecord) bool {
	changed := false

	if record.Snippet != "" && record.Snippet != existing.Snippet {
		existing.Snippet = record.Snippet
		changed = true
	}
	if record.BodyText != "" && record.BodyText != existing.BodyText {
		existing.BodyText = record.BodyText
		changed = true
	}
	if record.BodyHTML != "" && record.BodyHTML != existing.BodyHTML {
		existing.BodyHTML = record.BodyHTML
		changed = true
	}
	if record.Labels != nil && !reflect.DeepEqual([]string(existing.Labels), record.Labels) {
		existing.Labels = digestdomain.StringArray(record.Labels)
		changed = true
	}
	if record.HistoryID != "" && record.HistoryID != existing.HistoryID {
		existing.HistoryID = record.HistoryID
		changed = true
	}
	if record.RawPayload != nil && !reflect.DeepEqual(map[string]interface{}(existing.RawPayload), record.RawPayload) {
		existing.RawPayload = digestdomain.JSONMap(record.RawPayload)
		changed = true
	}
	if record.Timestamp.After(existing.Timestamp) {
		existing.Timestamp = record.Timestamp
		changed = true
	}

	// Provider-side status changes arrive through labels on gmail
	if status := statusFromLabels(record.Labels); status != "" && status != existing.Status {
		existing.Status = status
		changed = true
	}

	return changed
}

// statusFromLabels derives a triage status from provider labels: a message
// that lost its INBOX label upstream was archived there
func statusFromLabels(labels []string) digestdomain.MessageStatus {
	if labels == nil {
		return ""
	}
	for _, label := range labels {
		switch label {
		case "INBOX":
			return digestdomain.MessageStatusInbox
		case "TRASH":
			return digestdomain.MessageStatusDeleted
		}
	}
	return digestdomain.MessageStatusArchived
}
