package scoring

import (
	"context"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// Proposal is one suggested action produced by a scorer for a cluster
type Proposal struct {
	ActionType digestdomain.ActionType `json:"action_type"`
	Urgency    digestdomain.Urgency    `json:"urgency"`
	Confidence *float64                `json:"confidence,omitempty"` // In [0,1] when set
	Payload    map[string]interface{}  `json:"payload,omitempty"`
}

// Scorer is the interface for deriving suggested actions from a cluster.
// Implement this interface to add new providers (heuristic, Ollama, Gemini).
type Scorer interface {
	ProposeActions(ctx context.Context, cluster *digestdomain.Cluster, messages []*digestdomain.Message) ([]Proposal, error)
}

// ProviderType represents the scoring provider type
type ProviderType string

const (
	ProviderHeuristic ProviderType = "heuristic"
	ProviderOllama    ProviderType = "ollama"
	ProviderGemini    ProviderType = "gemini"
	ProviderAuto      ProviderType = "auto"
)

// Confidence is a convenience for building *float64 literals
func Confidence(v float64) *float64 {
	return &v
}
