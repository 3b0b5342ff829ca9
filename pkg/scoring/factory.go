package scoring

import (
	"github.com/inboxsherpa/inboxsherpa/pkg/config"
)

// NewScorer creates a Scorer based on the config. "auto" builds a fallback
// chain out of whatever providers are configured; the heuristic scorer is
// always the last resort.
func NewScorer(cfg *config.Config) Scorer {
	switch ProviderType(cfg.ScoringProvider) {
	case ProviderGemini:
		if cfg.GeminiAPIKey != "" {
			return NewFallbackScorer(NewGeminiScorer(cfg.GeminiAPIKey), nil)
		}
		return NewHeuristicScorer()
	case ProviderOllama:
		return NewFallbackScorer(NewOllamaScorer(cfg.OllamaBaseURL, cfg.OllamaModel), nil)
	case ProviderHeuristic:
		return NewHeuristicScorer()
	default:
		var primary, secondary Scorer
		if cfg.GeminiAPIKey != "" {
			primary = NewGeminiScorer(cfg.GeminiAPIKey)
		}
		if cfg.OllamaBaseURL != "" {
			secondary = NewOllamaScorer(cfg.OllamaBaseURL, cfg.OllamaModel)
		}
		if primary == nil && secondary == nil {
			return NewHeuristicScorer()
		}
		return NewFallbackScorer(primary, secondary)
	}
}
