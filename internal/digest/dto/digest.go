package dto

import (
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// ImportMessageRequest is one inbound normalized message
type ImportMessageRequest struct {
	Channel          string                 `json:"channel" binding:"required"`
	ExternalID       string                 `json:"external_id" binding:"required"`
	ThreadExternalID string                 `json:"thread_external_id"`
	Timestamp        time.Time              `json:"timestamp" binding:"required"`
	Sender           string                 `json:"sender" binding:"required"`
	Subject          string                 `json:"subject" binding:"required"`
	Snippet          string                 `json:"snippet"`
	BodyText         string                 `json:"body_text"`
	BodyHTML         string                 `json:"body_html"`
	Labels           []string               `json:"labels"`
	HistoryID        string                 `json:"history_id"`
	RawPayload       map[string]interface{} `json:"raw_payload"`
}

// ImportBatchRequest carries a batch of records for one user
type ImportBatchRequest struct {
	Messages []ImportMessageRequest `json:"messages" binding:"required"`
}

// ToRecord converts the request into a domain record owned by userID
func (r *ImportMessageRequest) ToRecord(userID string) *digestdomain.MessageRecord {
	return &digestdomain.MessageRecord{
		UserID:           userID,
		Channel:          digestdomain.Channel(r.Channel),
		ExternalID:       r.ExternalID,
		ThreadExternalID: r.ThreadExternalID,
		Timestamp:        r.Timestamp,
		Sender:           r.Sender,
		Subject:          r.Subject,
		Snippet:          r.Snippet,
		BodyText:         r.BodyText,
		BodyHTML:         r.BodyHTML,
		Labels:           r.Labels,
		HistoryID:        r.HistoryID,
		RawPayload:       r.RawPayload,
	}
}

// ImportBatchResponse summarizes a batch import
type ImportBatchResponse struct {
	Results   []digestdomain.ImportResult `json:"results"`
	Created   int                         `json:"created"`
	Updated   int                         `json:"updated"`
	Unchanged int                         `json:"unchanged"`
	Failed    int                         `json:"failed"`
}

// BuildDigestRequest triggers a clustering pass
type BuildDigestRequest struct {
	// DigestDate in YYYY-MM-DD; defaults to yesterday in the user's zone
	DigestDate string `json:"digest_date"`
}

// DecideActionRequest resolves a proposed action
type DecideActionRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=accepted rejected"`
}
