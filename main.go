package main

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	api "github.com/inboxsherpa/inboxsherpa/cmd/api"
	digestrepo "github.com/inboxsherpa/inboxsherpa/internal/digest/repository"
	"github.com/inboxsherpa/inboxsherpa/internal/digest/scheduler"
	digestusecase "github.com/inboxsherpa/inboxsherpa/internal/digest/usecase"
	identityrepo "github.com/inboxsherpa/inboxsherpa/internal/identity/repository"
	identityusecase "github.com/inboxsherpa/inboxsherpa/internal/identity/usecase"
	mailsync "github.com/inboxsherpa/inboxsherpa/internal/sync"
	"github.com/inboxsherpa/inboxsherpa/pkg/config"
	"github.com/inboxsherpa/inboxsherpa/pkg/database"
	"github.com/inboxsherpa/inboxsherpa/pkg/gmail"
	"github.com/inboxsherpa/inboxsherpa/pkg/grouping"
	"github.com/inboxsherpa/inboxsherpa/pkg/logger"
	"github.com/inboxsherpa/inboxsherpa/pkg/scoring"
)

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

	// Repositories
	userRepo := identityrepo.NewUserRepository(db)
	threadRepo := digestrepo.NewThreadRepository(db)
	messageRepo := digestrepo.NewMessageRepository(db)
	clusterRepo := digestrepo.NewClusterRepository(db)
	suggestionRepo := digestrepo.NewSuggestionRepository(db)

	// Injected capabilities
	strategy := grouping.NewStrategy(cfg)
	scorer := scoring.NewScorer(cfg)

	// Use cases
	registry := digestusecase.NewThreadRegistry(threadRepo)
	importer := digestusecase.NewImporterUsecase(messageRepo, threadRepo, registry)
	clusters := digestusecase.NewClusterUsecase(clusterRepo, messageRepo, userRepo, strategy, cfg.DefaultTimezone)
	suggestions := digestusecase.NewSuggestionUsecase(suggestionRepo, clusterRepo, messageRepo, userRepo, scorer)
	identityUc := identityusecase.NewIdentityUsecase(userRepo, cfg)

	// Mailbox push sync over Pub/Sub, enabled when a project is configured
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	var syncService *mailsync.Service
	if cfg.GoogleProjectID != "" {
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		syncService, err = mailsync.NewService(cfg.GoogleProjectID, topicName, cfg.GoogleCredentials, userRepo, gmailService, importer)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize mailbox sync service")
			syncService = nil
		} else {
			go syncService.Start(context.Background())
		}
	} else {
		log.Warn().Msg("GOOGLE_PROJECT_ID not configured, push sync disabled")
	}

	// Generic IMAP mailboxes are polled instead of pushed
	if cfg.IMAPHost != "" {
		imapPoller := mailsync.NewIMAPPoller(cfg, userRepo, importer)
		imapPoller.Start()
		defer imapPoller.Stop()
	}

	// Daily digest scheduler
	digestScheduler := scheduler.NewDigestScheduler(userRepo, clusters, suggestions, cfg)
	digestScheduler.Start()
	defer digestScheduler.Stop()

	handler := api.NewHandler(identityUc, importer, clusters, suggestions, syncService, cfg)

	log.Info().Str("port", cfg.Port).Msg("Server starting")
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
