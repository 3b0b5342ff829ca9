package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// OllamaScorer implements Scorer using an Ollama local LLM
type OllamaScorer struct {
	baseURL string
	model   string
}

// NewOllamaScorer creates a new Ollama scorer
func NewOllamaScorer(baseURL, model string) *OllamaScorer {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaScorer{baseURL: baseURL, model: model}
}

const proposalPrompt = `You are an email triage assistant. The messages below were grouped into one digest cluster. Suggest triage actions for the whole cluster.

RULES:
1. Return a JSON array only, no other text.
2. Each element: {"action_type": one of ["archive_all","snooze","reply_with_template","label_add","label_remove"], "urgency": one of ["low","medium","high"], "confidence": number between 0 and 1, "payload": object with action parameters}.
3. Suggest at most 3 actions. Return [] if nothing is worth doing.
4. archive_all for bulk/promotional clusters, reply_with_template when a response is expected, label_add/label_remove for recurring streams, snooze when it can wait.

MESSAGES:
%s

JSON OUTPUT:`

// ProposeActions implements Scorer
func (o *OllamaScorer) ProposeActions(ctx context.Context, cluster *digestdomain.Cluster, messages []*digestdomain.Message) ([]Proposal, error) {
	url := o.baseURL + "/api/generate"

	prompt := fmt.Sprintf(proposalPrompt, renderMessages(messages))

	payload := map[string]interface{}{
		"model":  o.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.2,
			"num_predict": 500,
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
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return parseProposalJSON(result.Response)
}

// renderMessages flattens a cluster's messages into prompt text
func renderMessages(messages []*digestdomain.Message) string {
	var b strings.Builder
	for i, msg := range messages {
		if i >= 20 {
			fmt.Fprintf(&b, "... and %d more\n", len(messages)-i)
			break
		}
		fmt.Fprintf(&b, "- From: %s | Subject: %s | Labels: %s\n",
			msg.Sender, msg.Subject, strings.Join(msg.Labels, ","))
		if msg.Snippet != "" {
			snippet := msg.Snippet
			if len(snippet) > 200 {
				snippet = snippet[:200]
			}
			fmt.Fprintf(&b, "  %s\n", snippet)
		}
	}
	return b.String()
}

// parseProposalJSON extracts the JSON array from model output and keeps only
// well-formed proposals
func parseProposalJSON(responseText string) ([]Proposal, error) {
	responseText = strings.TrimSpace(responseText)
	jsonStart := strings.Index(responseText, "[")
	jsonEnd := strings.LastIndex(responseText, "]")
	if jsonStart == -1 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON array in model output")
	}
	responseText = responseText[jsonStart : jsonEnd+1]

	var raw []struct {
		ActionType string                 `json:"action_type"`
		Urgency    string                 `json:"urgency"`
		Confidence *float64               `json:"confidence"`
		Payload    map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal([]byte(responseText), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse proposals: %w", err)
	}

	proposals := make([]Proposal, 0, len(raw))
	for _, p := range raw {
		actionType := digestdomain.ActionType(p.ActionType)
		if !actionType.Valid() {
			continue
		}
		urgency := digestdomain.Urgency(p.Urgency)
		if !urgency.Valid() {
			urgency = digestdomain.UrgencyLow
		}
		confidence := p.Confidence
		if confidence != nil && (*confidence < 0 || *confidence > 1) {
			confidence = nil
		}
		proposals = append(proposals, Proposal{
			ActionType: actionType,
			Urgency:    urgency,
			Confidence: confidence,
			Payload:    p.Payload,
		})
	}
	return proposals, nil
}
