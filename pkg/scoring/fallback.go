package scoring

import (
	"context"
	"net"
	"strings"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"

	"github.com/rs/zerolog/log"
)

// FallbackScorer chains providers: the primary model first, the secondary on
// connection or quota failures, and the heuristic scorer as the floor so
// proposal generation never fails outright on provider trouble.
type FallbackScorer struct {
	primary   Scorer
	secondary Scorer
	heuristic *HeuristicScorer
}

// NewFallbackScorer creates a fallback chain. primary and secondary may be nil.
func NewFallbackScorer(primary, secondary Scorer) *FallbackScorer {
	return &FallbackScorer{
		primary:   primary,
		secondary: secondary,
		heuristic: NewHeuristicScorer(),
	}
}

// ProposeActions implements Scorer
func (f *FallbackScorer) ProposeActions(ctx context.Context, cluster *digestdomain.Cluster, messages []*digestdomain.Message) ([]Proposal, error) {
	if f.primary != nil {
		proposals, err := f.primary.ProposeActions(ctx, cluster, messages)
		if err == nil {
			return proposals, nil
		}
		if !isConnectionError(err) && !isQuotaError(err) {
			return nil, err
		}
		log.Warn().Err(err).Str("cluster_id", cluster.ID).Msg("Primary scorer unavailable, falling back")
	}

	if f.secondary != nil {
		proposals, err := f.secondary.ProposeActions(ctx, cluster, messages)
		if err == nil {
			return proposals, nil
		}
		log.Warn().Err(err).Str("cluster_id", cluster.ID).Msg("Secondary scorer failed, using heuristics")
	}

	return f.heuristic.ProposeActions(ctx, cluster, messages)
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(net.Error); ok {
		return true
	}
	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}
	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}
	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
