package grouping

import (
	"context"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	"github.com/inboxsherpa/inboxsherpa/pkg/fuzzy"
)

// SimilarityGrouping clusters messages whose normalized subjects are close
// in edit distance, or that share a conversation thread. Messages from the
// same sender domain get a lower bar so newsletters and notification streams
// collapse into one group.
type SimilarityGrouping struct {
	threshold       float64 // Minimum subject similarity to merge
	domainThreshold float64 // Relaxed threshold for same-domain senders
}

// NewSimilarityGrouping creates a new SimilarityGrouping with the given
// subject-similarity threshold (0 picks the default)
func NewSimilarityGrouping(threshold float64) *SimilarityGrouping {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.75
	}
	return &SimilarityGrouping{
		threshold:       threshold,
		domainThreshold: threshold - 0.2,
	}
}

// GroupMessages implements Strategy
func (g *SimilarityGrouping) GroupMessages(_ context.Context, messages []*digestdomain.Message) ([]Group, error) {
	n := len(messages)
	if n == 0 {
		return nil, nil
	}

	// Union-find over message indexes
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	subjects := make([]string, n)
	domains := make([]string, n)
	for i, msg := range messages {
		subjects[i] = fuzzy.NormalizeSubject(msg.Subject)
		domains[i] = fuzzy.SenderDomain(msg.Sender)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if messages[i].ThreadExternalID != "" &&
				messages[i].ThreadExternalID == messages[j].ThreadExternalID {
				union(i, j)
				continue
			}
			ratio := fuzzy.SimilarityRatio(subjects[i], subjects[j])
			threshold := g.threshold
			if domains[i] != "" && domains[i] == domains[j] {
				threshold = g.domainThreshold
			}
			if ratio >= threshold {
				union(i, j)
			}
		}
	}

	// Collect components preserving input (timestamp) order
	byRoot := make(map[int]*Group)
	order := make([]int, 0, n)
	for i, msg := range messages {
		root := find(i)
		group, ok := byRoot[root]
		if !ok {
			group = &Group{Title: msg.Subject}
			byRoot[root] = group
			order = append(order, root)
		}
		group.MessageIDs = append(group.MessageIDs, msg.ID)
	}

	groups := make([]Group, 0, len(order))
	for _, root := range order {
		groups = append(groups, *byRoot[root])
	}
	return groups, nil
}
