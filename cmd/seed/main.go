package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	digestrepo "github.com/inboxsherpa/inboxsherpa/internal/digest/repository"
	digestusecase "github.com/inboxsherpa/inboxsherpa/internal/digest/usecase"
	identitydomain "github.com/inboxsherpa/inboxsherpa/internal/identity/domain"
	identityrepo "github.com/inboxsherpa/inboxsherpa/internal/identity/repository"
	"github.com/inboxsherpa/inboxsherpa/pkg/config"
	"github.com/inboxsherpa/inboxsherpa/pkg/database"
	"github.com/inboxsherpa/inboxsherpa/pkg/logger"
)

// Seeds a demo account with a day of messages so the digest pipeline can
// be exercised without a mailbox grant.
func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)

	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	userRepo := identityrepo.NewUserRepository(db)
	threadRepo := digestrepo.NewThreadRepository(db)
	messageRepo := digestrepo.NewMessageRepository(db)

	registry := digestusecase.NewThreadRegistry(threadRepo)
	importer := digestusecase.NewImporterUsecase(messageRepo, threadRepo, registry)

	user, err := userRepo.FindByEmail("demo@inboxsherpa.dev")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up demo user")
	}
	if user == nil {
		hash, err := identityrepo.HashPassword("demo-password")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash demo password")
		}
		user = &identitydomain.User{
			Email:             "demo@inboxsherpa.dev",
			PasswordHash:      hash,
			GmailAccountEmail: "demo.mailbox@gmail.com",
			Timezone:          cfg.DefaultTimezone,
		}
		if err := userRepo.Create(user); err != nil {
			log.Fatal().Err(err).Msg("Failed to create demo user")
		}
		log.Info().Str("user_id", user.ID).Msg("Created demo user")
	}

	yesterday := time.Now().AddDate(0, 0, -1)
	at := func(hour int) time.Time {
		return time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), hour, 0, 0, 0, time.UTC)
	}

	records := []*digestdomain.MessageRecord{
		{
			Channel:          digestdomain.ChannelJSON,
			ExternalID:       "seed-newsletter-1",
			ThreadExternalID: "seed-thread-news",
			Timestamp:        at(8),
			Sender:           "Weekly Digest <news@devletter.io>",
			Subject:          "Your weekly engineering digest",
			Snippet:          "This week in engineering news",
			Labels:           []string{"INBOX", "CATEGORY_PROMOTIONS"},
		},
		{
			Channel:          digestdomain.ChannelJSON,
			ExternalID:       "seed-newsletter-2",
			ThreadExternalID: "seed-thread-news",
			Timestamp:        at(9),
			Sender:           "Weekly Digest <news@devletter.io>",
			Subject:          "Re: Your weekly engineering digest",
			Labels:           []string{"INBOX", "CATEGORY_PROMOTIONS"},
		},
		{
			Channel:          digestdomain.ChannelJSON,
			ExternalID:       "seed-invoice-1",
			ThreadExternalID: "seed-thread-billing",
			Timestamp:        at(11),
			Sender:           "Billing <billing@cloudhost.com>",
			Subject:          "Invoice #4821 is due",
			Labels:           []string{"INBOX", "IMPORTANT"},
		},
		{
			Channel:    digestdomain.ChannelJSON,
			ExternalID: "seed-social-1",
			Timestamp:  at(14),
			Sender:     "Forum Updates <noreply@forum.dev>",
			Subject:    "3 new replies to your post",
			Labels:     []string{"INBOX", "CATEGORY_SOCIAL"},
		},
		{
			Channel:          digestdomain.ChannelJSON,
			ExternalID:       "seed-meeting-1",
			ThreadExternalID: "seed-thread-standup",
			Timestamp:        at(16),
			Sender:           "Alex Chen <alex@acme.com>",
			Subject:          "Standup notes and action items",
			Labels:           []string{"INBOX"},
		},
	}
	for _, r := range records {
		r.UserID = user.ID
	}

	results := importer.ImportBatch(records)
	created := 0
	for _, r := range results {
		if r.Error != "" {
			log.Warn().Str("external_id", r.ExternalID).Str("error", r.Error).Msg("Seed record rejected")
			continue
		}
		if r.Outcome == digestdomain.ImportCreated {
			created++
		}
	}

	fmt.Printf("Seeded %d messages for %s (digest date %s)\n", created, user.Email, yesterday.Format("2006-01-02"))
}
