package grouping

import (
	"github.com/inboxsherpa/inboxsherpa/pkg/config"

	"github.com/rs/zerolog/log"
)

// NewStrategy creates the configured grouping strategy. Falls back to
// thread-based grouping if the smarter strategies cannot be initialized.
func NewStrategy(cfg *config.Config) Strategy {
	switch StrategyType(cfg.GroupingStrategy) {
	case StrategyChroma:
		strategy, err := NewChromaGrouping(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Chroma grouping unavailable, falling back to similarity")
			return NewSimilarityGrouping(cfg.GroupingThreshold)
		}
		return strategy
	case StrategySimilarity:
		return NewSimilarityGrouping(cfg.GroupingThreshold)
	case StrategyThread:
		return NewThreadGrouping()
	default:
		return NewSimilarityGrouping(cfg.GroupingThreshold)
	}
}
