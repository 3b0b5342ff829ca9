package imap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// Service fetches messages from a generic IMAP mailbox and converts them
// into normalized records. IMAP has no server-side threading on the channel
// level, so records carry an empty thread external id and rely on later
// reconciliation.
type Service struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// NewService creates a new IMAP collaborator
func NewService(host, port, username, password string, tls bool) *Service {
	return &Service{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// Connect establishes a connection and authenticates. The caller is
// responsible for Logout on the returned client.
func (s *Service) Connect(_ context.Context) (*imapclient.Client, error) {
	addr := s.host + ":" + s.port

	var client *imapclient.Client
	var err error

	if s.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(s.username, s.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", s.username, err)
	}

	return client, nil
}

// FetchRecent returns records for INBOX messages received in the last
// `days` days, capped at `limit`, oldest first. External ids are the
// Message-ID header when present, the mailbox UID otherwise.
func (s *Service) FetchRecent(ctx context.Context, userID string, days, limit int) ([]*digestdomain.MessageRecord, error) {
	client, err := s.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	if days <= 0 {
		days = 7
	}
	criteria := &imap.SearchCriteria{
		Since: time.Now().AddDate(0, 0, -days),
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var records []*digestdomain.MessageRecord
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		record := s.recordFromBuffer(userID, buf, bodySection)
		if record != nil {
			records = append(records, record)
		}
	}

	if err := fetchCmd.Close(); err != nil {
		return records, fmt.Errorf("fetching messages: %w", err)
	}

	return records, nil
}

func (s *Service) recordFromBuffer(userID string, buf *imapclient.FetchMessageBuffer, bodySection *imap.FetchItemBodySection) *digestdomain.MessageRecord {
	if buf.Envelope == nil {
		return nil
	}

	externalID := strings.Trim(buf.Envelope.MessageID, "<>")
	if externalID == "" {
		externalID = fmt.Sprintf("uid:%d", buf.UID)
	}

	sender := ""
	if len(buf.Envelope.From) > 0 {
		sender = buf.Envelope.From[0].Addr()
		if name := buf.Envelope.From[0].Name; name != "" {
			sender = fmt.Sprintf("%s <%s>", name, buf.Envelope.From[0].Addr())
		}
	}
	if sender == "" {
		sender = "unknown"
	}

	subject := buf.Envelope.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	timestamp := buf.Envelope.Date
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var labels []string
	for _, flag := range buf.Flags {
		labels = append(labels, string(flag))
	}

	record := &digestdomain.MessageRecord{
		UserID:     userID,
		Channel:    digestdomain.ChannelIMAP,
		ExternalID: externalID,
		Timestamp:  timestamp.UTC(),
		Sender:     sender,
		Subject:    subject,
		Labels:     labels,
	}

	if raw := buf.FindBodySection(bodySection); raw != nil {
		record.BodyText, record.BodyHTML = parseMIMEBody(raw)
		record.Snippet = makeSnippet(record.BodyText)
	}

	return record
}

// parseMIMEBody extracts the text/plain and text/html parts of a raw
// RFC 2822 message
func parseMIMEBody(raw []byte) (textBody, htmlBody string) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Fall back to treating the whole message as plain text
		return string(raw), ""
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = string(body)
		}
	}

	return textBody, htmlBody
}

func makeSnippet(body string) string {
	snippet := strings.Join(strings.Fields(body), " ")
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return snippet
}
