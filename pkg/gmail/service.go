package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// TokenUpdateFunc handles persisting a refreshed OAuth token
type TokenUpdateFunc func(token *oauth2.Token) error

// Service fetches mailbox content and converts it into normalized message
// records. It never touches the database.
type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			fmt.Printf("Failed to update token: %v\n", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// GetGmailService creates a Gmail service with the user's access token
func (s *Service) GetGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	tokenSource := config.TokenSource(ctx, token)

	// Wrap token source to detect refreshes
	wrappedSource := &notifyTokenSource{
		src:      tokenSource,
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}

	return srv, nil
}

// FullSync fetches up to maxMessages recent messages and returns them as
// normalized records, newest page first. The caller feeds them through the
// importer, which makes replays harmless.
func (s *Service) FullSync(ctx context.Context, userID, accessToken, refreshToken string, maxMessages int, onTokenRefresh TokenUpdateFunc) ([]*digestdomain.MessageRecord, string, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, "", err
	}

	user := "me"

	// Profile carries the historyId to resume incremental sync from
	profile, err := srv.Users.GetProfile(user).Do()
	if err != nil {
		return nil, "", fmt.Errorf("unable to read mailbox profile: %v", err)
	}
	cursor := fmt.Sprintf("%d", profile.HistoryId)

	if maxMessages <= 0 {
		maxMessages = 500
	}

	records := make([]*digestdomain.MessageRecord, 0, maxMessages)
	pageToken := ""

	for len(records) < maxMessages {
		toFetch := int64(maxMessages - len(records))
		if toFetch > 500 {
			toFetch = 500 // Gmail API maximum
		}

		listQuery := srv.Users.Messages.List(user).MaxResults(toFetch)
		if pageToken != "" {
			listQuery = listQuery.PageToken(pageToken)
		}

		resp, err := listQuery.Do()
		if err != nil {
			return records, cursor, fmt.Errorf("unable to list messages: %v", err)
		}

		page, err := s.fetchRecords(ctx, srv, userID, resp.Messages)
		if err != nil {
			return records, cursor, err
		}
		records = append(records, page...)

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return records, cursor, nil
}

// IncrementalSync fetches messages added since the given historyId cursor.
// Returns the records plus the new cursor to persist. A 404 from the
// history API means the cursor is too old and a full sync is needed.
func (s *Service) IncrementalSync(ctx context.Context, userID, accessToken, refreshToken, startCursor string, onTokenRefresh TokenUpdateFunc) ([]*digestdomain.MessageRecord, string, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, "", err
	}

	user := "me"
	newCursor := startCursor

	seen := make(map[string]bool)
	var added []*gmail.Message
	pageToken := ""

	for {
		historyQuery := srv.Users.History.List(user).
			StartHistoryId(parseHistoryID(startCursor)).
			HistoryTypes("messageAdded")
		if pageToken != "" {
			historyQuery = historyQuery.PageToken(pageToken)
		}

		resp, err := historyQuery.Do()
		if err != nil {
			return nil, startCursor, fmt.Errorf("unable to list history: %v", err)
		}

		if resp.HistoryId > 0 {
			newCursor = fmt.Sprintf("%d", resp.HistoryId)
		}

		for _, h := range resp.History {
			for _, ma := range h.MessagesAdded {
				if ma.Message == nil || seen[ma.Message.Id] {
					continue
				}
				seen[ma.Message.Id] = true
				added = append(added, ma.Message)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	records, err := s.fetchRecords(ctx, srv, userID, added)
	if err != nil {
		return records, newCursor, err
	}

	return records, newCursor, nil
}

// Watch registers the mailbox for Pub/Sub push notifications
func (s *Service) Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	// Clear any existing watch; Gmail allows one push client per user
	_ = srv.Users.Stop("me").Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	if _, err := srv.Users.Watch("me", req).Do(); err != nil {
		return fmt.Errorf("unable to watch mailbox: %v", err)
	}

	return nil
}

// StopWatch stops push notifications for the user's mailbox
func (s *Service) StopWatch(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	if err := srv.Users.Stop("me").Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %v", err)
	}

	return nil
}

// fetchRecords loads full message bodies in parallel and converts them
func (s *Service) fetchRecords(ctx context.Context, srv *gmail.Service, userID string, refs []*gmail.Message) ([]*digestdomain.MessageRecord, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	type fetchResult struct {
		record *digestdomain.MessageRecord
		err    error
	}

	resultChan := make(chan fetchResult, len(refs))
	semaphore := make(chan struct{}, 10) // Max 10 concurrent requests

	for _, ref := range refs {
		go func(msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				resultChan <- fetchResult{nil, ctx.Err()}
				return
			}

			fullMsg, err := srv.Users.Messages.Get("me", msgID).Format("full").Do()
			if err != nil {
				resultChan <- fetchResult{nil, err}
				return
			}

			resultChan <- fetchResult{convertMessageToRecord(userID, fullMsg), nil}
		}(ref.Id)
	}

	records := make([]*digestdomain.MessageRecord, 0, len(refs))
	for i := 0; i < len(refs); i++ {
		result := <-resultChan
		if result.err == nil && result.record != nil {
			records = append(records, result.record)
		}
		// Messages that vanished between list and get are skipped
	}

	return records, nil
}

func convertMessageToRecord(userID string, msg *gmail.Message) *digestdomain.MessageRecord {
	subject := getHeader(msg.Payload.Headers, "Subject")
	if subject == "" {
		subject = "(no subject)"
	}

	body, isHTML := getMessageBody(msg.Payload)
	bodyText := body
	bodyHTML := ""
	if isHTML {
		bodyHTML = body
		bodyText = stripHTML(body)
	}

	record := &digestdomain.MessageRecord{
		UserID:           userID,
		Channel:          digestdomain.ChannelGmail,
		ExternalID:       msg.Id,
		ThreadExternalID: msg.ThreadId,
		Timestamp:        time.Unix(msg.InternalDate/1000, 0).UTC(),
		Sender:           getHeader(msg.Payload.Headers, "From"),
		Subject:          subject,
		Snippet:          msg.Snippet,
		BodyText:         bodyText,
		BodyHTML:         bodyHTML,
		Labels:           msg.LabelIds,
		HistoryID:        fmt.Sprintf("%d", msg.HistoryId),
	}
	if record.Sender == "" {
		record.Sender = "unknown"
	}

	return record
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

func getMessageBody(payload *gmail.MessagePart) (string, bool) {
	// If the payload itself is the body
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	// Prefer text/plain, fall back to text/html
	var htmlBody string
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			data, err := base64.URLEncoding.DecodeString(part.Body.Data)
			if err == nil {
				return string(data), false
			}
		}
		if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
			data, err := base64.URLEncoding.DecodeString(part.Body.Data)
			if err == nil {
				htmlBody = string(data)
			}
		}
		if len(part.Parts) > 0 {
			if body, isHTML := getMessageBody(part); body != "" {
				return body, isHTML
			}
		}
	}

	if htmlBody != "" {
		return htmlBody, true
	}
	return "", false
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	return strings.Join(strings.Fields(s), " ")
}

func parseHistoryID(cursor string) uint64 {
	var id uint64
	fmt.Sscanf(cursor, "%d", &id)
	return id
}
