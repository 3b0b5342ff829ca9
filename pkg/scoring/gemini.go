package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// GeminiScorer implements Scorer using the Gemini REST API
type GeminiScorer struct {
	apiKey string
}

// NewGeminiScorer creates a new Gemini scorer
func NewGeminiScorer(apiKey string) *GeminiScorer {
	return &GeminiScorer{apiKey: apiKey}
}

// ProposeActions implements Scorer
func (g *GeminiScorer) ProposeActions(ctx context.Context, cluster *digestdomain.Cluster, messages []*digestdomain.Message) ([]Proposal, error) {
	// gemini-2.5-flash is fast enough for per-cluster scoring
	url := "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent?key=" + g.apiKey

	prompt := fmt.Sprintf(proposalPrompt, renderMessages(messages))

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	return parseProposalJSON(result.Candidates[0].Content.Parts[0].Text)
}
