package domain

// Channel identifies the upstream source a message or thread came from
type Channel string

const (
	ChannelGmail Channel = "gmail"
	ChannelIMAP  Channel = "imap"
	ChannelJSON  Channel = "json"
)

// Valid reports whether the channel is one of the known upstream sources
func (c Channel) Valid() bool {
	switch c {
	case ChannelGmail, ChannelIMAP, ChannelJSON:
		return true
	}
	return false
}

// MessageStatus represents the triage state of a message
type MessageStatus string

const (
	MessageStatusInbox    MessageStatus = "inbox"
	MessageStatusArchived MessageStatus = "archived"
	MessageStatusSnoozed  MessageStatus = "snoozed"
	MessageStatusDeleted  MessageStatus = "deleted"
)

func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusInbox, MessageStatusArchived, MessageStatusSnoozed, MessageStatusDeleted:
		return true
	}
	return false
}

// SuggestionStatus represents the lifecycle state of a suggested action
type SuggestionStatus string

const (
	SuggestionStatusProposed SuggestionStatus = "proposed"
	SuggestionStatusAccepted SuggestionStatus = "accepted"
	SuggestionStatusRejected SuggestionStatus = "rejected"
)

func (s SuggestionStatus) Valid() bool {
	switch s {
	case SuggestionStatusProposed, SuggestionStatusAccepted, SuggestionStatusRejected:
		return true
	}
	return false
}

// Decided reports whether the status is terminal
func (s SuggestionStatus) Decided() bool {
	return s == SuggestionStatusAccepted || s == SuggestionStatusRejected
}

// ActionType represents the kind of action suggested for a cluster
type ActionType string

const (
	ActionArchiveAll        ActionType = "archive_all"
	ActionSnooze            ActionType = "snooze"
	ActionReplyWithTemplate ActionType = "reply_with_template"
	ActionLabelAdd          ActionType = "label_add"
	ActionLabelRemove       ActionType = "label_remove"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionArchiveAll, ActionSnooze, ActionReplyWithTemplate, ActionLabelAdd, ActionLabelRemove:
		return true
	}
	return false
}

// Urgency represents how urgent a suggested action is
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}
