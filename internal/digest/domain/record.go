package domain

import "time"

// MessageRecord is the normalized import input produced by an upstream
// collaborator (Gmail client, IMAP client, JSON batch upload). The importer
// never talks to the network itself.
type MessageRecord struct {
	UserID           string                 `json:"user_id"`
	Channel          Channel                `json:"channel"`
	ExternalID       string                 `json:"external_id"`
	ThreadExternalID string                 `json:"thread_external_id,omitempty"`
	Timestamp        time.Time              `json:"timestamp"`
	Sender           string                 `json:"sender"`
	Subject          string                 `json:"subject"`
	Snippet          string                 `json:"snippet,omitempty"`
	BodyText         string                 `json:"body_text,omitempty"`
	BodyHTML         string                 `json:"body_html,omitempty"`
	Labels           []string               `json:"labels,omitempty"`
	HistoryID        string                 `json:"history_id,omitempty"`
	RawPayload       map[string]interface{} `json:"raw_payload,omitempty"`
}

// Validate checks the required fields. A malformed record is rejected on its
// own; the surrounding batch keeps processing.
func (r *MessageRecord) Validate() error {
	if r.UserID == "" {
		return NewValidationError("user_id", "is required")
	}
	if !r.Channel.Valid() {
		return NewValidationError("channel", "is unknown")
	}
	if r.ExternalID == "" {
		return NewValidationError("external_id", "is required")
	}
	if r.Timestamp.IsZero() {
		return NewValidationError("timestamp", "is required")
	}
	if r.Sender == "" {
		return NewValidationError("sender", "is required")
	}
	if r.Subject == "" {
		return NewValidationError("subject", "is required")
	}
	return nil
}

// ImportOutcome reports what an import did with a record
type ImportOutcome string

const (
	ImportCreated   ImportOutcome = "created"
	ImportUpdated   ImportOutcome = "updated"
	ImportUnchanged ImportOutcome = "unchanged"
)

// ImportResult is the per-record result of a batch import. Either Outcome or
// Err is set, never both.
type ImportResult struct {
	ExternalID string        `json:"external_id"`
	Outcome    ImportOutcome `json:"outcome,omitempty"`
	MessageID  string        `json:"message_id,omitempty"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"` // Err rendered for API responses
}
