package grouping

import (
	"context"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// ThreadGrouping is the simplest strategy: one group per conversation
// thread. Messages without a thread each form their own group. Used as the
// fallback when no smarter strategy is configured.
type ThreadGrouping struct{}

// NewThreadGrouping creates a new ThreadGrouping
func NewThreadGrouping() *ThreadGrouping {
	return &ThreadGrouping{}
}

// GroupMessages implements Strategy
func (g *ThreadGrouping) GroupMessages(_ context.Context, messages []*digestdomain.Message) ([]Group, error) {
	byThread := make(map[string]*Group)
	order := make([]string, 0, len(messages))

	for _, msg := range messages {
		key := msg.ThreadExternalID
		if key == "" {
			// No threading concept on this channel; the message stands alone
			key = "msg:" + msg.ID
		}
		group, ok := byThread[key]
		if !ok {
			group = &Group{Title: msg.Subject}
			byThread[key] = group
			order = append(order, key)
		}
		group.MessageIDs = append(group.MessageIDs, msg.ID)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byThread[key])
	}
	return groups, nil
}
