package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inboxsherpa/inboxsherpa/internal/digest/usecase"
	identityrepo "github.com/inboxsherpa/inboxsherpa/internal/identity/repository"
	"github.com/inboxsherpa/inboxsherpa/pkg/config"
)

// DigestScheduler builds the previous day's digest for every user once
// their local clock passes the configured digest hour.
type DigestScheduler struct {
	userRepo    identityrepo.UserRepository
	clusters    usecase.ClusterUsecase
	suggestions usecase.SuggestionUsecase
	config      *config.Config
	interval    time.Duration
	stopChan    chan struct{}

	mu    sync.Mutex
	built map[string]string // userID -> last digest date built
}

// NewDigestScheduler creates a new scheduler
func NewDigestScheduler(
	userRepo identityrepo.UserRepository,
	clusters usecase.ClusterUsecase,
	suggestions usecase.SuggestionUsecase,
	cfg *config.Config,
) *DigestScheduler {
	return &DigestScheduler{
		userRepo:    userRepo,
		clusters:    clusters,
		suggestions: suggestions,
		config:      cfg,
		interval:    10 * time.Minute,
		stopChan:    make(chan struct{}),
		built:       make(map[string]string),
	}
}

// Start begins the scheduler loop
func (s *DigestScheduler) Start() {
	log.Info().
		Dur("interval", s.interval).
		Int("digest_hour", s.config.DigestHour).
		Msg("Starting digest scheduler")

	go func() {
		// Run immediately on start
		s.runDueDigests()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runDueDigests()
			case <-s.stopChan:
				log.Info().Msg("Digest scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *DigestScheduler) Stop() {
	close(s.stopChan)
}

// runDueDigests walks every user and builds yesterday's digest for those
// whose local time has passed the digest hour and who have not been built
// for that date yet.
func (s *DigestScheduler) runDueDigests() {
	users, err := s.userRepo.FindAll()
	if err != nil {
		log.Error().Err(err).Msg("Digest scheduler failed to list users")
		return
	}

	for _, user := range users {
		digestDate, due := s.dueDigestDate(user.Timezone, time.Now())
		if !due {
			continue
		}

		s.mu.Lock()
		already := s.built[user.ID] == digestDate
		s.mu.Unlock()
		if already {
			continue
		}

		s.buildFor(user.ID, digestDate)
	}
}

// dueDigestDate returns the digest date owed right now in the given zone,
// and whether the digest hour has passed. The digest for a given day covers
// the previous calendar day.
func (s *DigestScheduler) dueDigestDate(timezone string, now time.Time) (string, bool) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc, err = time.LoadLocation(s.config.DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}

	local := now.In(loc)
	if local.Hour() < s.config.DigestHour {
		return "", false
	}
	return local.AddDate(0, 0, -1).Format("2006-01-02"), true
}

func (s *DigestScheduler) buildFor(userID, digestDate string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := s.clusters.BuildDailyClusters(ctx, userID, digestDate, s.config.AlgoVersion)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Str("digest_date", digestDate).
			Msg("Scheduled digest build failed")
		return
	}

	for _, cluster := range report.Clusters {
		if _, err := s.suggestions.ProposeActions(ctx, userID, cluster.ID, false); err != nil {
			log.Warn().Err(err).
				Str("cluster_id", cluster.ID).
				Msg("Scheduled action proposal failed")
		}
	}

	s.mu.Lock()
	s.built[userID] = digestDate
	s.mu.Unlock()

	log.Info().
		Str("user_id", userID).
		Str("digest_date", digestDate).
		Int("clusters", len(report.Clusters)).
		Int("skipped", len(report.SkippedMessageIDs)).
		Msg("Scheduled digest built")
}
