package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"tradie_legal_go/config"
)

// Collaborator error types
var (
	ErrUpstreamUnavailable = errors.New("ai provider not configured")
	ErrUpstreamError       = errors.New("ai provider returned an unusable response")
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// CaseFacts is the input to strategy generation
type CaseFacts struct {
	Trade         string
	State         string
	IssueType     string
	Description   string
	ClaimedAmount *float64
	IntakeData    string
}

// StrategyAnalysis is the structured half of a generation result
type StrategyAnalysis struct {
	Summary            string   `json:"summary"`
	LegalPosition      string   `json:"legal_position"`
	RiskLevel          string   `json:"risk_level"`
	RecommendedActions []string `json:"recommended_actions"`
}

// StrategyResult bundles the analysis with the drafted strategy document
type StrategyResult struct {
	Analysis     StrategyAnalysis `json:"analysis"`
	StrategyHTML string           `json:"strategy_html"`
	Placeholder  bool             `json:"placeholder"`
}

// AIGenerator drafts legal strategy content from case facts
type AIGenerator interface {
	GenerateStrategy(ctx context.Context, facts CaseFacts) (*StrategyResult, error)
	TriageApplication(ctx context.Context, facts CaseFacts) (string, error)
}

type openAIGenerator struct {
	apiKey string
	model  string
	client *http.Client
}

// NewAIGenerator creates the OpenAI-backed generator. Without an API key
// it still constructs; calls then return placeholder content with
// ErrUpstreamUnavailable so the workflow can degrade instead of crash.
func NewAIGenerator(cfg *config.Config) AIGenerator {
	return &openAIGenerator{
		apiKey: cfg.OpenAIAPIKey,
		model:  cfg.OpenAIModel,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

func (g *openAIGenerator) GenerateStrategy(ctx context.Context, facts CaseFacts) (*StrategyResult, error) {
	if g.apiKey == "" {
		return placeholderStrategy(facts), ErrUpstreamUnavailable
	}

	prompt := buildStrategyPrompt(facts)
	raw, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result StrategyResult
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &result); err != nil {
		log.Printf("AI strategy response did not parse as JSON: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamError, err)
	}
	if result.Analysis.Summary == "" || result.StrategyHTML == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrUpstreamError)
	}

	return &result, nil
}

func (g *openAIGenerator) TriageApplication(ctx context.Context, facts CaseFacts) (string, error) {
	if g.apiKey == "" {
		return placeholderTriage(facts), ErrUpstreamUnavailable
	}

	prompt := fmt.Sprintf(`You are triaging an enquiry from an Australian tradesperson.
Trade: %s. State: %s. Issue type: %s.
Description: %s

Respond with 2-3 plain sentences assessing whether this looks like a viable %s matter and what the key risks are. Plain text only, no markdown.`,
		facts.Trade, facts.State, facts.IssueType, truncate(facts.Description, 2000), facts.IssueType)

	summary, err := g.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

// complete performs a single chat-completions call
func (g *openAIGenerator) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamError, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamError, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrUpstreamError, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrUpstreamError)
	}

	return parsed.Choices[0].Message.Content, nil
}

func buildStrategyPrompt(facts CaseFacts) string {
	amount := "not stated"
	if facts.ClaimedAmount != nil {
		amount = fmt.Sprintf("$%.2f AUD", *facts.ClaimedAmount)
	}

	return fmt.Sprintf(`You are drafting a legal strategy for an Australian tradesperson in a %s matter.
Trade: %s. State: %s. Claimed amount: %s.
Background: %s
Intake details: %s

Respond ONLY with a valid JSON object (no markdown, no code blocks) with this structure:
{
  "analysis": {
    "summary": "2-3 sentence assessment of the dispute",
    "legal_position": "The client's position under the relevant state security-of-payment and contract law",
    "risk_level": "low | medium | high",
    "recommended_actions": ["ordered list of concrete next steps"]
  },
  "strategy_html": "The full strategy letter as simple HTML (h2, p, ul, ol tags only)"
}`,
		facts.IssueType, facts.Trade, facts.State, amount,
		truncate(facts.Description, 4000), truncate(facts.IntakeData, 4000))
}

// cleanJSONResponse strips markdown code fences some models wrap around
// JSON despite instructions.
func cleanJSONResponse(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func placeholderStrategy(facts CaseFacts) *StrategyResult {
	return &StrategyResult{
		Analysis: StrategyAnalysis{
			Summary:       fmt.Sprintf("Automatic analysis is not available. A %s dispute in %s has been recorded and will be reviewed manually.", facts.IssueType, facts.State),
			LegalPosition: "Pending manual review.",
			RiskLevel:     "medium",
			RecommendedActions: []string{
				"Gather all contracts, quotes and invoices relating to the job",
				"Keep copies of all correspondence with the other party",
				"Await manual review of your case",
			},
		},
		StrategyHTML: "<h2>Strategy pending</h2><p>Your case details have been recorded. A reviewed strategy document will be issued shortly.</p>",
		Placeholder:  true,
	}
}

func placeholderTriage(facts CaseFacts) string {
	return fmt.Sprintf("Automatic triage unavailable. %s enquiry from a %s in %s awaiting manual review.",
		facts.IssueType, facts.Trade, facts.State)
}
