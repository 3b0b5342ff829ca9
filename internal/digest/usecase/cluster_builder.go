package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	"github.com/inboxsherpa/inboxsherpa/internal/digest/repository"
	identityrepo "github.com/inboxsherpa/inboxsherpa/internal/identity/repository"
	"github.com/inboxsherpa/inboxsherpa/pkg/grouping"

	"github.com/rs/zerolog/log"
)

const digestDateLayout = "2006-01-02"

// clusterUsecase implements ClusterUsecase
type clusterUsecase struct {
	clusterRepo     repository.ClusterRepository
	messageRepo     repository.MessageRepository
	userRepo        identityrepo.UserRepository
	strategy        grouping.Strategy
	defaultTimezone string
}

// NewClusterUsecase creates a new cluster builder with the injected grouping
// strategy
func NewClusterUsecase(clusterRepo repository.ClusterRepository, messageRepo repository.MessageRepository, userRepo identityrepo.UserRepository, strategy grouping.Strategy, defaultTimezone string) ClusterUsecase {
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &clusterUsecase{
		clusterRepo:     clusterRepo,
		messageRepo:     messageRepo,
		userRepo:        userRepo,
		strategy:        strategy,
		defaultTimezone: defaultTimezone,
	}
}

func (u *clusterUsecase) BuildDailyClusters(ctx context.Context, userID, digestDate, algoVersion string) (*BuildReport, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, digestdomain.ErrNotFound
	}

	start, end, err := u.dayWindow(digestDate, user.Timezone)
	if err != nil {
		return nil, err
	}

	messages, err := u.messageRepo.FindUnclusteredInWindow(userID, start, end)
	if err != nil {
		return nil, err
	}
	report := &BuildReport{}
	if len(messages) == 0 {
		// Nothing new for this day; rerunning is a no-op
		return report, nil
	}

	byID := make(map[string]*digestdomain.Message, len(messages))
	for _, msg := range messages {
		byID[msg.ID] = msg
	}

	groups, err := u.strategy.GroupMessages(ctx, messages)
	if err != nil {
		// The capability failing leaves everything unclustered for the next
		// run rather than killing the digest
		log.Warn().Err(err).Str("user_id", userID).Str("digest_date", digestDate).
			Msg("Grouping capability failed, skipping all messages")
		for _, msg := range messages {
			report.SkippedMessageIDs = append(report.SkippedMessageIDs, msg.ID)
		}
		return report, nil
	}

	assigned := make(map[string]bool, len(messages))
	for _, group := range groups {
		// Cancellation between group transactions leaves a resumable state:
		// claimed messages keep their cluster, the rest are picked up by
		// the next run
		if ctxErr := ctx.Err(); ctxErr != nil {
			u.reportRemaining(report, messages, assigned)
			return report, ctxErr
		}

		memberIDs := make([]string, 0, len(group.MessageIDs))
		for _, id := range group.MessageIDs {
			if byID[id] != nil && !assigned[id] {
				memberIDs = append(memberIDs, id)
			}
		}
		if len(memberIDs) == 0 {
			continue
		}

		cluster := &digestdomain.Cluster{
			UserID:      userID,
			DigestDate:  digestDate,
			AlgoVersion: algoVersion,
			Title:       group.Title,
			SummaryJSON: digestdomain.JSONMap{"message_count": len(memberIDs)},
		}
		count, err := u.clusterRepo.CreateWithMessages(cluster, memberIDs)
		if err != nil {
			if errors.Is(err, digestdomain.ErrConflict) {
				// Every member was claimed by a concurrent run; their rows
				// already point at that run's cluster
				log.Debug().Str("user_id", userID).Int("members", len(memberIDs)).
					Msg("Group already claimed, skipping")
				continue
			}
			log.Warn().Err(err).Str("user_id", userID).
				Msg("Group assignment failed, messages stay unclustered")
			report.SkippedMessageIDs = append(report.SkippedMessageIDs, memberIDs...)
			continue
		}
		for _, id := range memberIDs {
			assigned[id] = true
		}
		report.Clusters = append(report.Clusters, cluster)
		log.Info().Str("cluster_id", cluster.ID).Str("digest_date", digestDate).
			Int("messages", count).Msg("Cluster created")
	}

	u.reportRemaining(report, messages, assigned)
	return report, nil
}

// reportRemaining marks all selected-but-unassigned messages as skipped so
// no message silently drops out of a pass
func (u *clusterUsecase) reportRemaining(report *BuildReport, messages []*digestdomain.Message, assigned map[string]bool) {
	seen := make(map[string]bool, len(report.SkippedMessageIDs))
	for _, id := range report.SkippedMessageIDs {
		seen[id] = true
	}
	for _, msg := range messages {
		if !assigned[msg.ID] && !seen[msg.ID] {
			report.SkippedMessageIDs = append(report.SkippedMessageIDs, msg.ID)
		}
	}
}

func (u *clusterUsecase) GetClusters(userID, digestDate string) ([]*digestdomain.Cluster, error) {
	if _, err := time.Parse(digestDateLayout, digestDate); err != nil {
		return nil, digestdomain.NewValidationError("digest_date", "must be YYYY-MM-DD")
	}
	return u.clusterRepo.FindByUserAndDate(userID, digestDate, "")
}

func (u *clusterUsecase) GetClusterMessages(userID, clusterID string) ([]*digestdomain.Message, error) {
	cluster, err := u.clusterRepo.FindByID(clusterID)
	if err != nil {
		return nil, err
	}
	if cluster == nil || cluster.UserID != userID {
		return nil, digestdomain.ErrNotFound
	}
	return u.messageRepo.FindByCluster(clusterID)
}

// dayWindow computes [00:00, next day 00:00) of the digest date in the
// user's zone
func (u *clusterUsecase) dayWindow(digestDate, timezone string) (time.Time, time.Time, error) {
	if timezone == "" {
		timezone = u.defaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Warn().Str("timezone", timezone).Msg("Unknown timezone, using default")
		loc, err = time.LoadLocation(u.defaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}
	day, err := time.ParseInLocation(digestDateLayout, digestDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, digestdomain.NewValidationError("digest_date", fmt.Sprintf("must be YYYY-MM-DD, got %q", digestDate))
	}
	return day, day.AddDate(0, 0, 1), nil
}
