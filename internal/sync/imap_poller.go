package sync

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	digestusecase "github.com/inboxsherpa/inboxsherpa/internal/digest/usecase"
	identityrepo "github.com/inboxsherpa/inboxsherpa/internal/identity/repository"
	"github.com/inboxsherpa/inboxsherpa/pkg/config"
	"github.com/inboxsherpa/inboxsherpa/pkg/imap"
)

// IMAPPoller periodically pulls recent mailbox messages over IMAP and feeds
// them through the importer. IMAP has no push channel, so polling plus the
// idempotent importer stands in for Gmail-style notifications.
type IMAPPoller struct {
	mailbox    *imap.Service
	username   string
	fetchDays  int
	fetchLimit int
	userRepo   identityrepo.UserRepository
	importer   digestusecase.ImporterUsecase
	interval   time.Duration
	stopChan   chan struct{}
}

// NewIMAPPoller creates a poller for the mailbox configured in cfg
func NewIMAPPoller(cfg *config.Config, userRepo identityrepo.UserRepository, importer digestusecase.ImporterUsecase) *IMAPPoller {
	return &IMAPPoller{
		mailbox:    imap.NewService(cfg.IMAPHost, cfg.IMAPPort, cfg.IMAPUsername, cfg.IMAPPassword, cfg.IMAPTLS),
		username:   cfg.IMAPUsername,
		fetchDays:  cfg.IMAPFetchDays,
		fetchLimit: cfg.IMAPFetchLimit,
		userRepo:   userRepo,
		importer:   importer,
		interval:   15 * time.Minute,
		stopChan:   make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called
func (p *IMAPPoller) Start() {
	log.Info().Str("mailbox", p.username).Dur("interval", p.interval).
		Msg("Starting IMAP poller")

	go func() {
		p.poll()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.poll()
			case <-p.stopChan:
				log.Info().Msg("IMAP poller stopped")
				return
			}
		}
	}()
}

// Stop terminates the polling loop
func (p *IMAPPoller) Stop() {
	close(p.stopChan)
}

func (p *IMAPPoller) poll() {
	user, err := p.userRepo.FindByEmail(p.username)
	if err != nil {
		log.Error().Err(err).Str("mailbox", p.username).Msg("Failed to look up mailbox owner")
		return
	}
	if user == nil {
		log.Warn().Str("mailbox", p.username).Msg("No account bound to IMAP mailbox, skipping poll")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	records, err := p.mailbox.FetchRecent(ctx, user.ID, p.fetchDays, p.fetchLimit)
	if err != nil {
		log.Error().Err(err).Str("mailbox", p.username).Msg("IMAP fetch failed")
		return
	}
	if len(records) == 0 {
		return
	}

	results := p.importer.ImportBatch(records)

	created, failed := 0, 0
	for _, r := range results {
		switch {
		case r.Error != "":
			failed++
		case r.Outcome == digestdomain.ImportCreated:
			created++
		}
	}

	if linked, err := p.importer.ReconcileThreads(user.ID); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Thread reconciliation failed")
	} else if linked > 0 {
		log.Debug().Int("linked", linked).Str("user_id", user.ID).Msg("Backfilled thread links")
	}

	if created > 0 || failed > 0 {
		log.Info().
			Str("user_id", user.ID).
			Int("fetched", len(records)).
			Int("created", created).
			Int("failed", failed).
			Msg("IMAP poll completed")
	}
}
