package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	digestusecase "github.com/inboxsherpa/inboxsherpa/internal/digest/usecase"
	identitydomain "github.com/inboxsherpa/inboxsherpa/internal/identity/domain"
	identityrepo "github.com/inboxsherpa/inboxsherpa/internal/identity/repository"
	"github.com/inboxsherpa/inboxsherpa/pkg/gmail"
)

// GmailNotification is the Pub/Sub payload Gmail pushes on mailbox changes
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service consumes Gmail push notifications and turns them into
// incremental imports. The stored sync cursor plus the idempotent importer
// make redelivered or reordered notifications harmless.
type Service struct {
	pubsubClient *pubsub.Client
	userRepo     identityrepo.UserRepository
	gmailService *gmail.Service
	importer     digestusecase.ImporterUsecase
	projectID    string
	topicName    string
	subName      string

	// In-memory dedupe on top of the persistent cursor; drops obvious
	// duplicates without a database round trip
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

// NewService creates the Pub/Sub consumer
func NewService(projectID, topicName, credentialsFile string, userRepo identityrepo.UserRepository, gmailService *gmail.Service, importer digestusecase.ImporterUsecase) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient:  client,
		userRepo:      userRepo,
		gmailService:  gmailService,
		importer:      importer,
		projectID:     projectID,
		topicName:     topicName,
		subName:       topicName + "-sub", // Convention: topic-sub
		lastHistoryID: make(map[string]uint64),
	}, nil
}

// Start ensures the subscription exists and blocks receiving messages
// until the context is cancelled
func (s *Service) Start(ctx context.Context) {
	log.Info().
		Str("topic", s.topicName).
		Str("subscription", s.subName).
		Msg("Starting mailbox sync service")

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check subscription existence")
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to check topic existence")
			return
		}
		if !topicExists {
			log.Error().Str("topic", s.topicName).Msg("Topic does not exist, cannot create subscription")
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to create subscription")
			return
		}
		log.Info().Str("subscription", s.subName).Msg("Created subscription")
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Error().Err(err).Msg("Pub/Sub receive loop ended")
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Warn().Err(err).Msg("Failed to unmarshal mailbox notification")
		return
	}

	user, err := s.userRepo.FindByGmailAccount(notification.EmailAddress)
	if err != nil {
		log.Error().Err(err).Str("email", notification.EmailAddress).Msg("Failed to look up mailbox owner")
		return
	}
	if user == nil {
		log.Warn().Str("email", notification.EmailAddress).Msg("Notification for unknown mailbox")
		return
	}

	s.mu.Lock()
	lastHID, seen := s.lastHistoryID[user.ID]
	if seen && notification.HistoryID <= lastHID {
		s.mu.Unlock()
		return
	}
	s.lastHistoryID[user.ID] = notification.HistoryID
	s.mu.Unlock()

	if err := s.SyncUser(ctx, user); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Incremental sync failed")
	}
}

// tokenRefresh persists rotated OAuth tokens for the user
func (s *Service) tokenRefresh(user *identitydomain.User) gmail.TokenUpdateFunc {
	return func(newToken *oauth2.Token) error {
		user.GmailAccessToken = newToken.AccessToken
		if newToken.RefreshToken != "" {
			user.GmailRefreshToken = newToken.RefreshToken
		}
		return s.userRepo.Update(user)
	}
}

// SyncUser pulls everything newer than the user's stored cursor through
// the importer and advances the cursor afterwards
func (s *Service) SyncUser(ctx context.Context, user *identitydomain.User) error {
	cursor, err := s.userRepo.GetSyncCursor(user.ID)
	if err != nil {
		return err
	}

	onTokenRefresh := s.tokenRefresh(user)

	var records []*digestdomain.MessageRecord
	var newCursor string

	if cursor == "" {
		// No cursor yet: bootstrap with a bounded full sync
		records, newCursor, err = s.gmailService.FullSync(ctx, user.ID, user.GmailAccessToken, user.GmailRefreshToken, 500, onTokenRefresh)
	} else {
		records, newCursor, err = s.gmailService.IncrementalSync(ctx, user.ID, user.GmailAccessToken, user.GmailRefreshToken, cursor, onTokenRefresh)
	}
	if err != nil {
		return err
	}

	results := s.importer.ImportBatch(records)

	created, updated, failed := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Error != "":
			failed++
		case r.Outcome == digestdomain.ImportCreated:
			created++
		case r.Outcome == digestdomain.ImportUpdated:
			updated++
		}
	}

	if linked, err := s.importer.ReconcileThreads(user.ID); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Thread reconciliation failed")
	} else if linked > 0 {
		log.Debug().Int("linked", linked).Str("user_id", user.ID).Msg("Backfilled thread links")
	}

	if newCursor != "" && newCursor != cursor {
		if err := s.userRepo.AdvanceSyncCursor(user.ID, newCursor); err != nil {
			return err
		}
	}

	log.Info().
		Str("user_id", user.ID).
		Int("created", created).
		Int("updated", updated).
		Int("failed", failed).
		Str("cursor", newCursor).
		Msg("Mailbox sync completed")

	return nil
}

// topicFullName is the fully qualified topic Gmail watch registration wants
func (s *Service) topicFullName() string {
	return fmt.Sprintf("projects/%s/topics/%s", s.projectID, s.topicName)
}

// WatchUser registers the user's mailbox for push notifications
func (s *Service) WatchUser(ctx context.Context, user *identitydomain.User) error {
	return s.gmailService.Watch(ctx, user.GmailAccessToken, user.GmailRefreshToken, s.topicFullName(), s.tokenRefresh(user))
}

// EnablePush stores a fresh mailbox grant, registers the watch and kicks
// off a catch-up sync so the cursor is primed before the first notification
func (s *Service) EnablePush(ctx context.Context, user *identitydomain.User, accessToken, refreshToken string) error {
	user.GmailAccessToken = accessToken
	if refreshToken != "" {
		user.GmailRefreshToken = refreshToken
	}
	if err := s.userRepo.Update(user); err != nil {
		return err
	}

	if err := s.WatchUser(ctx, user); err != nil {
		return err
	}

	go func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.SyncUser(syncCtx, user); err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Msg("Catch-up sync after watch registration failed")
		}
	}()

	log.Info().Str("user_id", user.ID).Str("topic", s.topicFullName()).Msg("Mailbox watch registered")
	return nil
}

// DisablePush stops push notifications for the user's mailbox
func (s *Service) DisablePush(ctx context.Context, user *identitydomain.User) error {
	return s.gmailService.StopWatch(ctx, user.GmailAccessToken, user.GmailRefreshToken, s.tokenRefresh(user))
}

// Close releases the Pub/Sub client
func (s *Service) Close() error {
	return s.pubsubClient.Close()
}
