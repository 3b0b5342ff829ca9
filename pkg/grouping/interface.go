package grouping

import (
	"context"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// Group is one proposed digest cluster: a title plus the member message ids
type Group struct {
	Title      string
	MessageIDs []string
}

// Strategy is the interface for grouping a day's messages into clusters.
// The cluster builder treats implementations as opaque capabilities; swap
// the heuristic by changing the configured strategy.
type Strategy interface {
	// GroupMessages partitions the given messages into groups. Every
	// returned message id must come from the input; messages left out of
	// all groups stay unclustered.
	GroupMessages(ctx context.Context, messages []*digestdomain.Message) ([]Group, error)
}

// StrategyType selects a grouping implementation
type StrategyType string

const (
	StrategyThread     StrategyType = "thread"
	StrategySimilarity StrategyType = "similarity"
	StrategyChroma     StrategyType = "chroma"
)
