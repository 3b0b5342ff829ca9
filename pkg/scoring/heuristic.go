package scoring

import (
	"context"
	"strings"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	"github.com/inboxsherpa/inboxsherpa/pkg/fuzzy"
)

// HeuristicScorer derives actions from label and sender patterns without any
// model call. It is the always-available fallback provider.
type HeuristicScorer struct{}

// NewHeuristicScorer creates a new HeuristicScorer
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

var urgentMarkers = []string{"urgent", "asap", "action required", "deadline", "reminder"}

// ProposeActions implements Scorer
func (s *HeuristicScorer) ProposeActions(_ context.Context, cluster *digestdomain.Cluster, messages []*digestdomain.Message) ([]Proposal, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	promotional := 0
	important := 0
	domains := make(map[string]int)
	for _, msg := range messages {
		for _, label := range msg.Labels {
			switch label {
			case "CATEGORY_PROMOTIONS", "CATEGORY_SOCIAL", "CATEGORY_UPDATES":
				promotional++
			case "IMPORTANT", "STARRED":
				important++
			}
		}
		subject := strings.ToLower(msg.Subject)
		for _, marker := range urgentMarkers {
			if strings.Contains(subject, marker) {
				important++
				break
			}
		}
		if domain := fuzzy.SenderDomain(msg.Sender); domain != "" {
			domains[domain]++
		}
	}

	var proposals []Proposal

	// A cluster of pure bulk mail is safe to archive in one go
	if promotional >= len(messages) && important == 0 {
		proposals = append(proposals, Proposal{
			ActionType: digestdomain.ActionArchiveAll,
			Urgency:    digestdomain.UrgencyLow,
			Confidence: Confidence(0.9),
			Payload:    map[string]interface{}{"message_count": len(messages)},
		})
	}

	if important > 0 {
		proposals = append(proposals, Proposal{
			ActionType: digestdomain.ActionReplyWithTemplate,
			Urgency:    digestdomain.UrgencyHigh,
			Confidence: Confidence(0.6),
			Payload:    map[string]interface{}{"template": "acknowledge"},
		})
	}

	// Everything from one sender domain suggests a label bundling the stream
	for domain, count := range domains {
		if count == len(messages) && len(messages) > 1 {
			proposals = append(proposals, Proposal{
				ActionType: digestdomain.ActionLabelAdd,
				Urgency:    digestdomain.UrgencyLow,
				Confidence: Confidence(0.7),
				Payload:    map[string]interface{}{"label": domain},
			})
		}
	}

	// Quiet clusters can wait for the next digest
	if len(proposals) == 0 {
		proposals = append(proposals, Proposal{
			ActionType: digestdomain.ActionSnooze,
			Urgency:    digestdomain.UrgencyLow,
			Confidence: Confidence(0.5),
			Payload:    map[string]interface{}{"until": "next_digest"},
		})
	}

	return proposals, nil
}
