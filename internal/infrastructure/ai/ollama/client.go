// Package ollama provides Ollama integration for local AI inference.
// It proposes a week of recipes for the meal planner.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"go.uber.org/zap"
)

// ErrNoJSON is returned when the model answer holds no JSON object
var ErrNoJSON = errors.New("no valid JSON found in response")

// Client implements outbound.SuggestionGenerator using the Ollama chat API
type Client struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a new Ollama client
func NewClient(cfg config.SuggestionsConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	logger.Info("Ollama client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", timeout))

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("ollama-client"),
	}
}

var _ outbound.SuggestionGenerator = (*Client)(nil)

// Ollama API structures
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ChatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ChatResponse struct {
	Model        string      `json:"model"`
	Message      ChatMessage `json:"message"`
	Done         bool        `json:"done"`
	EvalCount    int         `json:"eval_count,omitempty"`
	EvalDuration int64       `json:"eval_duration,omitempty"`
}

type suggestionEnvelope struct {
	Recipes []outbound.RecipeSuggestion `json:"recipes"`
}

// HealthCheck verifies the Ollama service is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check failed with status %d", resp.StatusCode)
	}
	return nil
}

// Suggest asks the model for a week of recipes. Slots in the answer are
// passed through as given; the planner maps them onto valid ones.
func (c *Client) Suggest(ctx context.Context, req outbound.SuggestionRequest) ([]outbound.RecipeSuggestion, error) {
	content, err := c.chat(ctx, buildSystemPrompt(req), buildUserPrompt(req))
	if err != nil {
		return nil, err
	}

	suggestions, err := parseSuggestions(content)
	if err != nil {
		c.logger.Warn("Failed to parse suggestions",
			zap.Error(err),
			zap.String("response", truncate(content, 500)))
		return nil, err
	}

	c.logger.Info("Suggestions generated",
		zap.String("week", req.Week),
		zap.Int("count", len(suggestions)))
	return suggestions, nil
}

func buildSystemPrompt(req outbound.SuggestionRequest) string {
	var b strings.Builder
	b.WriteString(`You plan home-cooked meals for one week.

Respond with ONLY a JSON object in this exact format:
{
  "recipes": [
    {"name": "Dish name", "description": "One sentence", "day_of_week": "Monday", "meal_type": "Dinner"}
  ]
}
`)
	if len(req.Days) > 0 {
		fmt.Fprintf(&b, "\n- day_of_week must be one of: %s", strings.Join(req.Days, ", "))
	}
	if len(req.MealTypes) > 0 {
		fmt.Fprintf(&b, "\n- meal_type must be one of: %s", strings.Join(req.MealTypes, ", "))
	}
	b.WriteString("\n- Do not repeat dishes from the recent weeks list.")
	return b.String()
}

func buildUserPrompt(req outbound.SuggestionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan the week starting %s.", req.Week)
	if req.Preferences != "" {
		fmt.Fprintf(&b, "\nPreferences: %s", req.Preferences)
	}
	if len(req.RecentRecipes) > 0 {
		fmt.Fprintf(&b, "\nRecent weeks: %s", strings.Join(req.RecentRecipes, ", "))
	}
	return b.String()
}

func (c *Client) chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
		Format: "json",
		Options: map[string]interface{}{
			"temperature": 0.7,
			"num_predict": 2000,
			"num_ctx":     4096,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !chatResp.Done {
		return "", fmt.Errorf("incomplete response from ollama")
	}

	c.logger.Debug("Ollama chat completion successful",
		zap.String("model", chatResp.Model),
		zap.Int64("eval_duration", chatResp.EvalDuration),
		zap.Int("eval_count", chatResp.EvalCount))

	return chatResp.Message.Content, nil
}

// parseSuggestions extracts the recipes object; models sometimes wrap the
// JSON in prose, so only the outermost braces are decoded
func parseSuggestions(content string) ([]outbound.RecipeSuggestion, error) {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, ErrNoJSON
	}

	var envelope suggestionEnvelope
	if err := json.Unmarshal([]byte(content[start:end+1]), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	suggestions := make([]outbound.RecipeSuggestion, 0, len(envelope.Recipes))
	for _, s := range envelope.Recipes {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
