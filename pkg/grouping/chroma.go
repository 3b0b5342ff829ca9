package grouping

import (
	"context"
	"fmt"
	"os"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	"github.com/inboxsherpa/inboxsherpa/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ChromaGrouping groups messages by embedding similarity using a Chroma
// vector collection. Each run upserts the day's messages under a fresh run
// id, queries neighbors per message and merges the ones closer than
// maxDistance.
type ChromaGrouping struct {
	client      chroma.Client
	collection  chroma.Collection
	maxDistance float64
	neighbors   int
}

// NewChromaGrouping creates a ChromaGrouping backed by Chroma Cloud
func NewChromaGrouping(cfg *config.Config) (*ChromaGrouping, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}
	if cfg.GeminiAPIKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	var client chroma.Client
	if cfg.ChromaDatabase != "" && cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	} else {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	ctx := context.Background()
	collection, err := client.GetOrCreateCollection(
		ctx,
		"digest-messages",
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &ChromaGrouping{
		client:      client,
		collection:  collection,
		maxDistance: 0.35,
		neighbors:   10,
	}, nil
}

// GroupMessages implements Strategy
func (g *ChromaGrouping) GroupMessages(ctx context.Context, messages []*digestdomain.Message) ([]Group, error) {
	n := len(messages)
	if n == 0 {
		return nil, nil
	}

	// Scope this run's documents with a fresh run id so neighbor queries
	// never pick up older digests
	runID := uuid.New().String()
	indexByID := make(map[string]int, n)

	for i, msg := range messages {
		indexByID[msg.ID] = i

		text := fmt.Sprintf("Subject: %s\n\nFrom: %s\n\n%s", msg.Subject, msg.Sender, msg.Snippet)
		if len(text) > 10000 {
			text = text[:10000]
		}
		metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
			"run_id":  runID,
			"user_id": msg.UserID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create metadata: %w", err)
		}
		err = g.collection.Upsert(
			ctx,
			chroma.WithIDs(chroma.DocumentID(msg.ID)),
			chroma.WithMetadatas(metadata),
			chroma.WithTexts(text),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert message embedding: %w", err)
		}
	}

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

	where := chroma.EqString("run_id", runID)
	for i, msg := range messages {
		query := fmt.Sprintf("Subject: %s\n\nFrom: %s\n\n%s", msg.Subject, msg.Sender, msg.Snippet)
		results, err := g.collection.Query(
			ctx,
			chroma.WithQueryTexts(query),
			chroma.WithNResults(g.neighbors),
			chroma.WithWhereQuery(where),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query collection: %w", err)
		}
		if results == nil || results.CountGroups() == 0 {
			continue
		}

		idGroups := results.GetIDGroups()
		distanceGroups := results.GetDistancesGroups()
		if len(idGroups) == 0 {
			continue
		}
		for k, id := range idGroups[0] {
			j, ok := indexByID[string(id)]
			if !ok || j == i {
				continue
			}
			if len(distanceGroups) > 0 && k < len(distanceGroups[0]) &&
				float64(distanceGroups[0][k]) > g.maxDistance {
				continue
			}
			ra, rb := find(i), find(j)
			if ra != rb {
				parent[rb] = ra
			}
		}
	}

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
	log.Debug().Int("messages", n).Int("groups", len(groups)).Msg("Chroma grouping complete")
	return groups, nil
}
